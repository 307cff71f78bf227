package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pixivdl/internal/services"
)

type codedError struct{ code int }

func (e codedError) Error() string  { return fmt.Sprintf("coded %d", e.code) }
func (e codedError) ErrorCode() int { return e.code }

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "ugoira", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ugoira", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestInterruptedMatchesCancellation(t *testing.T) {
	err := services.Interrupted("download", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if !services.IsInterrupted(err) {
		t.Fatal("expected IsInterrupted to be true")
	}
	if services.IsInterrupted(errors.New("other")) {
		t.Fatal("plain error must not count as interrupt")
	}
	wrapped := services.Interrupted("reencode", errors.New("signal"))
	if !errors.Is(wrapped, context.Canceled) || !errors.Is(wrapped, services.ErrInterrupted) {
		t.Fatalf("expected both markers, got %v", wrapped)
	}
}

func TestErrorCode(t *testing.T) {
	if code := services.ErrorCode(nil); code != 0 {
		t.Fatalf("expected 0 for nil, got %d", code)
	}
	if code := services.ErrorCode(errors.New("plain")); code != services.UnknownErrorCode {
		t.Fatalf("expected unknown code, got %d", code)
	}
	err := fmt.Errorf("wrapped: %w", codedError{code: 2004})
	if code := services.ErrorCode(err); code != 2004 {
		t.Fatalf("expected 2004, got %d", code)
	}
}
