package reencode

import "time"

// SetNow fixes the clock used for backup names.
func (w *Workflow) SetNow(fn func() time.Time) {
	w.now = fn
}
