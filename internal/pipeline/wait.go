package pipeline

import (
	"context"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/services"
)

// Wait sleeps for the configured download delay after a work, unless the
// outcome allows moving on immediately. It returns early with an interrupt
// error when ctx is cancelled.
func (p *Processor) Wait(ctx context.Context, outcome artwork.Outcome) error {
	if outcome.NoWait() {
		return nil
	}
	delay := time.Duration(p.cfg.Network.DownloadDelaySeconds) * time.Second
	if delay <= 0 {
		return nil
	}
	return p.sleep(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return services.Interrupted("wait", ctx.Err())
	case <-timer.C:
		return nil
	}
}
