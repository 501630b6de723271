package handler

import (
	"errors"
	"net/http"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/gin-gonic/gin"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrSignatureInvalid, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConsentViolation, http.StatusUnprocessableEntity},
	{domain.ErrPlanLimit, http.StatusUnprocessableEntity},
	{domain.ErrRateLimited, http.StatusTooManyRequests},
	{domain.ErrProvider, http.StatusBadGateway},
	{domain.ErrPersistence, http.StatusInternalServerError},
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err.Error())
		if status == http.StatusInternalServerError {
			c.AbortWithStatusJSON(status, errorResponse{Error: "internal error"})
			return
		}
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}
