package api

import (
	"errors"
	"net/http"

	"queueaway/internal/domain"
	"queueaway/internal/geo"
	"queueaway/internal/models"

	"github.com/gin-gonic/gin"
)

const msgInternal = "Something went wrong"

func writeJSON(c *gin.Context, statusCode int, payload any) {
	c.JSON(statusCode, payload)
}

func writeError(c *gin.Context, statusCode int, message string) {
	writeJSON(c, statusCode, gin.H{"error": message})
}

// fail writes err with the status it maps to. fallback is the text shown when err has no
// user-facing message of its own.
func (s *Server) fail(c *gin.Context, err error, fallback string) {
	code := statusFor(err)
	if fallback == "" {
		fallback = msgInternal
	}
	message := domain.UserMessage(err, fallback)
	if isGeoError(err) {
		message = geo.Message(err)
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", c.GetString(ctxRequestIDKey)).Str("path", c.Request.URL.Path).Msg("request failed")
	} else {
		s.logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("request rejected")
	}
	writeError(c, code, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrServiceNotOffered),
		errors.Is(err, domain.ErrInvalidSlot):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, geo.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPushUnsupported),
		errors.Is(err, domain.ErrFederatedDisabled),
		errors.Is(err, geo.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, geo.ErrPositionUnavailable),
		errors.Is(err, geo.ErrTimeout):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func isGeoError(err error) bool {
	return errors.Is(err, geo.ErrUnsupported) ||
		errors.Is(err, geo.ErrPermissionDenied) ||
		errors.Is(err, geo.ErrPositionUnavailable) ||
		errors.Is(err, geo.ErrTimeout)
}

// caller returns the identity set by requireAuth.
func caller(c *gin.Context) *models.Identity {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*models.Identity)
	return id
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
