package response

import (
	"errors"
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/gin-gonic/gin"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 response.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, msg)
}

// Fail writes an error response with an explicit status.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: msg})
}

// Error maps application errors onto HTTP statuses.
func Error(c *gin.Context, err error) {
	var (
		validation *apperror.ValidationError
		notFound   *apperror.NotFoundError
		conflict   *apperror.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		Fail(c, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		Fail(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		Fail(c, http.StatusConflict, conflict.Error())
	default:
		Fail(c, http.StatusInternalServerError, "internal server error")
	}
}
