package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AnTengye/bettertender/backend/middleware"
	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrObjectMissing):
		return http.StatusGone
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Internal details stay in the log.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		logger.Error(c.Request.Context(), "request failed", "error", err)
		msg = "Internal server error"
	case http.StatusServiceUnavailable:
		logger.Warn(c.Request.Context(), "storage unavailable", "error", err)
		c.Header("Retry-After", "1")
		msg = "Storage busy, please retry"
	}
	c.JSON(status, gin.H{"error": msg, "request_id": middleware.GetRequestID(c)})
}

// currentActor returns the authenticated actor or writes a 401
func currentActor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return model.Actor{}, false
	}
	return actor, true
}

// pathID parses a positive int64 path parameter or writes a 400
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
