package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bptracker/internal/apperr"
	"bptracker/internal/middleware"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

const kindBadRequest = "bad_request"

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindDecode, apperr.KindValidation, apperr.KindFormat:
		return http.StatusBadRequest
	case apperr.KindExtraction:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps err to its status and writes the error body. Server
// faults are logged with the underlying cause.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)

	c.JSON(status, ErrorResponse{
		Error: apperr.MessageOf(err),
		Kind:  string(kind),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Kind: kindBadRequest})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
