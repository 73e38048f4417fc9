// Package handlers defines the error codes returned in the JSON envelope.
//
// Codes are lowercase snake_case. Generic codes mirror the HTTP status;
// domain codes name the matching-engine condition so clients can branch on
// them (a donor app shows "someone else already accepted" on request_closed).
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "request_closed",
//	  "message": "blood request is no longer open"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
	"github.com/tbourn/go-bloodlink-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation        = "validation_failed"
	ErrCodeRequestClosed     = "request_closed"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeDispatchFailed    = "dispatch_failed"
	ErrCodeUnavailable       = "dependency_unavailable"
)

// failService maps a service error onto the envelope.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, services.ErrNoDonorsSelected),
		errors.Is(err, services.ErrInvalidResponseStatus):
		code := ErrCodeBadRequest
		if errors.Is(err, domain.ErrValidation) {
			code = ErrCodeValidation
		}
		fail(c, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, services.ErrRequestNotFound), errors.Is(err, services.ErrDonorNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrRequestClosed):
		fail(c, http.StatusConflict, ErrCodeRequestClosed, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrNoNotifications):
		fail(c, http.StatusInternalServerError, ErrCodeDispatchFailed, err.Error())
	case errors.Is(err, domain.ErrDependency):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
