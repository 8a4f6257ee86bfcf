package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"todosync/internal/service"
)

var errInvalidID = errors.New("invalid id")

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{Code: code, Message: message}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

// serviceError maps service sentinels to responses. Anything unknown is an
// internal error and its text is not exposed.
func serviceError(err error) apiError {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return newStatusTextError(http.StatusNotFound)
	case errors.Is(err, service.ErrInvalid):
		return newBadRequestError(err.Error())
	case errors.Is(err, service.ErrAmbiguous):
		return newAPIError(http.StatusConflict, err.Error())
	default:
		return newStatusTextError(http.StatusInternalServerError)
	}
}
