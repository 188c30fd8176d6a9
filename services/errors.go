package services

import "errors"

// Typed outcomes of engine operations. Handlers map these to HTTP status
// codes with errors.Is; nothing below is ever fatal to the process.
var (
	// ErrValidation covers malformed or semantically invalid input, such as
	// a scheduled time in the past or a missing cancellation reason.
	ErrValidation = errors.New("invalid input")

	// ErrIneligibleProfessional means the professional failed eligibility
	// checks at booking or assignment time. The booking is left unchanged.
	ErrIneligibleProfessional = errors.New("professional is not eligible for this service")

	// ErrConflict means an optimistic-concurrency precondition failed: the
	// record changed between read and write. Callers should re-read and
	// decide whether to retry; the engine never retries on its own.
	ErrConflict = errors.New("state changed concurrently")

	// ErrPermission means the actor does not hold the role required for the
	// requested edge, or does not own the booking.
	ErrPermission = errors.New("actor not permitted")

	// ErrPaymentGateway means the external gateway was unreachable or
	// rejected the request. The booking stays pending and the caller may
	// retry intent creation.
	ErrPaymentGateway = errors.New("payment gateway error")

	// ErrSignatureVerification means a callback signature did not match.
	// Treated as a potential forgery: the payment is marked failed and the
	// booking is untouched.
	ErrSignatureVerification = errors.New("payment signature verification failed")

	// ErrIllegalState means the operation is not defined for the record's
	// current status, e.g. cancelling a completed booking.
	ErrIllegalState = errors.New("operation not allowed in current state")

	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)
