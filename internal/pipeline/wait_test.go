package pipeline_test

import (
	"context"
	"testing"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
	"pixivdl/internal/services"
	"pixivdl/internal/testsupport"
)

func TestWaitSkipsNoWaitOutcomes(t *testing.T) {
	h := newHarness(t, nil, testsupport.With(func(c *config.Config) {
		c.Network.DownloadDelaySeconds = 3
	}))
	var waits []time.Duration
	h.processor.SetSleep(func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	})

	cases := []struct {
		outcome artwork.Outcome
		wait    bool
	}{
		{artwork.OutcomeOK, true},
		{artwork.OutcomeSkipDuplicate, true},
		{artwork.OutcomeSkipDuplicateNoWait, false},
		{artwork.OutcomeSkipBlacklist, false},
		{artwork.OutcomeSkipOlder, false},
		{artwork.OutcomeNotOK, false},
	}
	for _, tc := range cases {
		waits = waits[:0]
		if err := h.processor.Wait(context.Background(), tc.outcome); err != nil {
			t.Fatalf("Wait(%s): %v", tc.outcome, err)
		}
		if got := len(waits) == 1; got != tc.wait {
			t.Fatalf("Wait(%s) slept=%v, want %v", tc.outcome, got, tc.wait)
		}
		if tc.wait && waits[0] != 3*time.Second {
			t.Fatalf("Wait(%s) slept %s", tc.outcome, waits[0])
		}
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	h := newHarness(t, nil, testsupport.With(func(c *config.Config) {
		c.Network.DownloadDelaySeconds = 60
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.processor.Wait(ctx, artwork.OutcomeOK)
	if !services.IsInterrupted(err) {
		t.Fatalf("expected interrupt, got %v", err)
	}
}
