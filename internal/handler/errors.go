package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/response"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/gin-gonic/gin"
)

// writeError maps routing and summary errors onto HTTP statuses and leaves
// everything else to response.Error.
func writeError(c *gin.Context, err error) {
	if status, ok := statusFor(err); ok {
		response.Fail(c, status, err.Error())
		return
	}
	response.Error(c, err)
}

// statusFor classifies upstream and domain errors. A NoRouteFoundError
// unwraps to the first stage's failure, so a rate limit or a rejected
// request is reported as such.
func statusFor(err error) (int, bool) {
	var (
		serviceErr *route.ServiceError
		failure    *summary.Failure
	)

	switch {
	case errors.Is(err, route.ErrStaleFetch), errors.Is(err, summary.ErrStale):
		return http.StatusConflict, true
	case errors.Is(err, route.ErrRateLimited):
		return http.StatusTooManyRequests, true
	case errors.Is(err, route.ErrBadRequest):
		return http.StatusBadRequest, true
	case errors.As(err, &serviceErr):
		return http.StatusBadGateway, true
	case errors.Is(err, route.ErrNoRouteFound):
		return http.StatusNotFound, true
	case errors.Is(err, route.ErrRouteIndexOutOfRange):
		return http.StatusBadRequest, true
	case errors.As(err, &failure):
		return http.StatusBadGateway, true
	case errors.Is(err, summary.ErrNoRoutes):
		return http.StatusConflict, true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	}
	return 0, false
}
