// Package apperr defines the request-scoped error taxonomy shared by the
// application, interview and review services and mapped to HTTP by the api
// package.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the coarse class of a failure.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindInternal   Kind = "internal"
)

// Code identifies a specific failure. Every code belongs to exactly one Kind.
type Code string

const (
	CodeJobNotFound         Code = "job_not_found"
	CodeApplicationNotFound Code = "application_not_found"
	CodeInterviewNotFound   Code = "interview_not_found"
	CodeReviewNotFound      Code = "review_not_found"
	CodeTargetNotFound      Code = "target_not_found"

	CodeRoleViolation Code = "role_violation"
	CodeNotOwner      Code = "not_owner"
	CodeNotEligible   Code = "not_eligible"

	CodeDuplicateApplication     Code = "duplicate_application"
	CodeSchedulingConflict       Code = "scheduling_conflict"
	CodeDuplicateReview          Code = "duplicate_review"
	CodeInvalidTransition        Code = "invalid_transition"
	CodeFeedbackAlreadySubmitted Code = "feedback_already_submitted"
	CodeJobClosed                Code = "job_closed"

	CodeInvalidInput   Code = "invalid_input"
	CodeSelfReview     Code = "self_review"
	CodeTargetMismatch Code = "target_mismatch"

	CodeInternal Code = "internal"
)

var kinds = map[Code]Kind{
	CodeJobNotFound:         KindNotFound,
	CodeApplicationNotFound: KindNotFound,
	CodeInterviewNotFound:   KindNotFound,
	CodeReviewNotFound:      KindNotFound,
	CodeTargetNotFound:      KindNotFound,

	CodeRoleViolation: KindForbidden,
	CodeNotOwner:      KindForbidden,
	CodeNotEligible:   KindForbidden,

	CodeDuplicateApplication:     KindConflict,
	CodeSchedulingConflict:       KindConflict,
	CodeDuplicateReview:          KindConflict,
	CodeInvalidTransition:        KindConflict,
	CodeFeedbackAlreadySubmitted: KindConflict,
	CodeJobClosed:                KindConflict,

	CodeInvalidInput:   KindValidation,
	CodeSelfReview:     KindValidation,
	CodeTargetMismatch: KindValidation,

	CodeInternal: KindInternal,
}

// KindFor returns the Kind a code belongs to. Unknown codes are internal.
func KindFor(code Code) Kind {
	if k, ok := kinds[code]; ok {
		return k
	}
	return KindInternal
}

// Error is the concrete error type returned by the services.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	// Fields carries per-field validation messages.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error for code with a human readable message.
func New(code Code, message string) *Error {
	return &Error{Kind: KindFor(code), Code: code, Message: message}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause to a new Error.
func Wrap(code Code, message string, err error) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// Validation builds an invalid_input error with per-field messages.
func Validation(message string, fields map[string]string) *Error {
	e := New(CodeInvalidInput, message)
	e.Fields = fields
	return e
}

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
