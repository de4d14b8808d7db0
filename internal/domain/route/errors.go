package route

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when the routing service answers 429.
	ErrRateLimited = errors.New("routing service rate limit exceeded")

	// ErrBadRequest is returned when the routing service answers 400,
	// typically because an endpoint is too far from any road.
	ErrBadRequest = errors.New("routing service rejected the request")

	// ErrNoRoute is returned when the routing service answers successfully
	// but with no route.
	ErrNoRoute = errors.New("routing service returned no route")

	// ErrNoRouteFound is matched by *NoRouteFoundError.
	ErrNoRouteFound = errors.New("no route found")

	// ErrStaleFetch is returned when a newer fetch superseded this one.
	ErrStaleFetch = errors.New("route fetch superseded by a newer request")

	// ErrRouteIndexOutOfRange is returned for selections outside the route set.
	ErrRouteIndexOutOfRange = errors.New("route index out of range")
)

// ServiceError is any other non-success answer from the routing service.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("routing service error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("routing service error (status %d): %s", e.StatusCode, e.Message)
}

// NoRouteFoundError means every acquisition stage came back empty.
// Cause is the first-stage failure, if there was one.
type NoRouteFoundError struct {
	Cause error
}

func (e *NoRouteFoundError) Error() string {
	if e.Cause == nil {
		return ErrNoRouteFound.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNoRouteFound.Error(), e.Cause)
}

func (e *NoRouteFoundError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrNoRouteFound) hold.
func (e *NoRouteFoundError) Is(target error) bool { return target == ErrNoRouteFound }
