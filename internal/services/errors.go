// Package services holds the business logic of the matching engine: request
// lifecycle, candidate search, notification dispatch and the donor response
// state machine. This file centralizes service-level error values so that
// handlers can map them to HTTP status codes.
package services

import "errors"

var (
	// ErrRequestNotFound indicates that the blood request does not exist.
	ErrRequestNotFound = errors.New("blood request not found")

	// ErrDonorNotFound indicates that the donor profile does not exist.
	ErrDonorNotFound = errors.New("donor not found")

	// ErrRequestClosed is returned when a request is already fulfilled or
	// cancelled. A donor who accepts after another donor won the request
	// gets this error.
	ErrRequestClosed = errors.New("blood request is no longer open")

	// ErrInvalidTransition is returned when a response cannot move from its
	// current status to the requested one.
	ErrInvalidTransition = errors.New("invalid response transition")

	// ErrNoDonorsSelected is returned when dispatch is called without donors.
	ErrNoDonorsSelected = errors.New("no donors selected")

	// ErrInvalidResponseStatus is returned for a status a donor cannot set
	// (notified, cancelled or unknown).
	ErrInvalidResponseStatus = errors.New("response status must be pending, accepted or declined")
)
