package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phantomos/governor/internal/governor"
)

// Success sends a JSON success response
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error sends a JSON error response
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// GovernorError maps governor sentinel errors to HTTP statuses.
func GovernorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, governor.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, governor.ErrForbidden):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, governor.ErrCapacityExceeded):
		Error(c, http.StatusInsufficientStorage, err.Error())
	case errors.Is(err, governor.ErrInvalidRequest):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, governor.ErrUnavailable):
		Error(c, http.StatusServiceUnavailable, err.Error())
	default:
		Error(c, http.StatusInternalServerError, err.Error())
	}
}
