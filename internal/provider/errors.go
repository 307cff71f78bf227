package provider

import (
	"errors"
	"fmt"

	"pixivdl/internal/services"
)

// FetchError kinds.
const (
	KindUnknownWork = "unknown_work"
	KindServerError = "server_error"
	KindOther       = "other"
)

// Error codes reported through services.ErrorCode.
const (
	CodeUnknownWork = 2001
	CodeOtherWork   = 2100
	CodeServerError = 9005
)

// FetchError reports a work whose metadata could not be retrieved.
type FetchError struct {
	Kind    string
	Code    int
	Message string
	// Page is the raw response body, kept for the error dump.
	Page []byte
	Err  error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches services.ErrNotFound for unknown works and
// services.ErrTransient for server errors.
func (e *FetchError) Is(target error) bool {
	switch e.Kind {
	case KindUnknownWork:
		return target == services.ErrNotFound
	case KindServerError:
		return target == services.ErrTransient
	}
	return false
}

// ErrorCode implements services.ErrorCoder.
func (e *FetchError) ErrorCode() int { return e.Code }

func unknownWork(msg string, page []byte) *FetchError {
	return &FetchError{Kind: KindUnknownWork, Code: CodeUnknownWork, Message: msg, Page: page}
}

func serverError(msg string, page []byte, err error) *FetchError {
	return &FetchError{Kind: KindServerError, Code: CodeServerError, Message: msg, Page: page, Err: err}
}

func otherError(msg string, page []byte, err error) *FetchError {
	return &FetchError{Kind: KindOther, Code: CodeOtherWork, Message: msg, Page: page, Err: err}
}

// AsFetchError extracts a *FetchError from err.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
