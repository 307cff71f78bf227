package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Markers classify faults for errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
	ErrInterrupted   = errors.New("interrupted")
)

// UnknownErrorCode is reported for faults that carry no code of their own.
const UnknownErrorCode = -1

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Interrupted wraps err so that it matches both ErrInterrupted and
// context.Canceled.
func Interrupted(stage string, err error) error {
	if err == nil {
		err = context.Canceled
	}
	if !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", context.Canceled, err)
	}
	return Wrap(ErrInterrupted, stage, "", "", err)
}

// IsInterrupted reports whether err stems from a user interrupt or a
// cancelled context.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}

// ErrorCoder is implemented by faults that expose a numeric code.
type ErrorCoder interface {
	ErrorCode() int
}

// ErrorCode returns the caller-visible code for err. Faults implementing
// ErrorCoder report their own code; everything else maps to UnknownErrorCode.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	var coder ErrorCoder
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return UnknownErrorCode
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
