package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/middleware"
)

// httpStatus maps an error code onto an HTTP status.
func httpStatus(code string) int {
	switch code {
	case domain.ErrInvalidInput, domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrPHIBlocked:
		return http.StatusUnprocessableEntity
	case domain.ErrReportNotFound:
		return http.StatusNotFound
	case domain.ErrRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrArchive:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// toEngineError converts any error into the response envelope.
func toEngineError(c *gin.Context, err error) *domain.EngineError {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var engineErr *domain.EngineError
	if errors.As(err, &engineErr) {
		out := *engineErr
		out.RequestID = requestID
		return &out
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		out := domain.WrapEngineError(domain.ErrTimeout, "request timed out", err)
		out.RequestID = requestID
		return out
	}

	code := domain.CodeFor(err)
	message := "internal error"
	details := ""
	if code != domain.ErrInternalServer {
		message = err.Error()
	} else {
		details = err.Error()
	}
	return domain.NewEngineError(code, message, details, requestID)
}

// respondError writes err as a JSON error envelope with the matching status.
func (s *Server) respondError(c *gin.Context, err error) {
	engineErr := toEngineError(c, err)
	status := httpStatus(engineErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField(middleware.CorrelationIDKey, engineErr.RequestID).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, engineErr)
}
