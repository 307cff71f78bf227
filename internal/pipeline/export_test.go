package pipeline

import (
	"context"
	"time"
)

// SetSleep replaces the delay function used by Wait.
func (p *Processor) SetSleep(fn func(context.Context, time.Duration) error) {
	p.sleep = fn
}
