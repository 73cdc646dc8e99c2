package dto

import (
	"net/http"

	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// Transport-level error codes. Domain errors carry their own codes.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "TOKEN_INVALID"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotFound  = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeBodyTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeServiceDegraded = "SERVICE_UNAVAILABLE"
)

// internalMessage replaces the text of persistence and unclassified failures
const internalMessage = "An internal error occurred"

var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:      http.StatusUnprocessableEntity,
	shared.KindNotFound:        http.StatusNotFound,
	shared.KindConflict:        http.StatusConflict,
	shared.KindUnauthorized:    http.StatusUnauthorized,
	shared.KindForbidden:       http.StatusForbidden,
	shared.KindDerivedArtifact: http.StatusBadGateway,
	shared.KindPersistence:     http.StatusInternalServerError,
}

// StatusForKind maps an error kind to its HTTP status code
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorFor classifies err into an HTTP status plus the code and message the
// client may see. Persistence failures never expose their message.
func ErrorFor(err error) (status int, code, message string) {
	de, ok := shared.AsDomainError(err)
	if !ok {
		return http.StatusInternalServerError, ErrCodeInternal, internalMessage
	}
	if de.Kind == shared.KindPersistence {
		return http.StatusInternalServerError, shared.ErrPersistence.Code, internalMessage
	}
	return StatusForKind(de.Kind), de.Code, de.Message
}
