package termui

import (
	"context"
	"time"

	"vawter.tech/stopper"
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

const (
	spinnerInterval = 100 * time.Millisecond
	spinnerJoin     = time.Second
)

// Spinner animates a single line until Stop is called.
type Spinner struct {
	c    *Console
	sctx *stopper.Context
}

// Spin starts a spinner goroutine next to desc.
func (c *Console) Spin(ctx context.Context, desc string) *Spinner {
	sctx := stopper.WithContext(ctx)
	sctx.Go(func(sctx *stopper.Context) error {
		t := time.NewTicker(spinnerInterval)
		defer t.Stop()
		for i := 0; ; i++ {
			c.printf("\r%s%c %s", indent, spinnerFrames[i%len(spinnerFrames)], desc)
			select {
			case <-sctx.Stopping():
				return nil
			case <-t.C:
			}
		}
	})
	return &Spinner{c: c, sctx: sctx}
}

// Stop signals the goroutine, waits at most one second for it, and clears the line.
func (s *Spinner) Stop() {
	s.sctx.Stop(spinnerJoin)
	done := make(chan struct{})
	go func() {
		_ = s.sctx.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(spinnerJoin):
	}
	s.c.ClearLine()
}
