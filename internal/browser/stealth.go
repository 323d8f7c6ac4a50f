package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Jitter is a random delay between Min and Max. The zero value never waits.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Duration picks a delay in [Min, Max].
func (j Jitter) Duration() time.Duration {
	if j.Max <= 0 {
		return 0
	}
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int63n(int64(j.Max-j.Min)+1))
}

// Wait sleeps for a random duration or until ctx ends.
func (j Jitter) Wait(ctx context.Context) error {
	d := j.Duration()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RandomDelay waits for a random duration between min and max
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	return Jitter{Min: min, Max: max}.Wait(ctx)
}

// HumanScroll scrolls the job list in steps so lazily rendered cards load
func HumanScroll(ctx context.Context, page playwright.Page, steps int) error {
	for i := 0; i < steps; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return err
		}
		if err := RandomDelay(ctx, 300*time.Millisecond, 900*time.Millisecond); err != nil {
			return err
		}
	}
	// scroll back up a bit
	_, err := page.Evaluate("window.scrollBy(0, -200)")
	return err
}

// MouseJiggle simulates random mouse movements to prevent idle detection
func MouseJiggle(ctx context.Context, page playwright.Page) error {
	viewportSize := page.ViewportSize()
	if viewportSize == nil {
		return nil
	}
	for i := 0; i < 3; i++ {
		x := rand.Intn(viewportSize.Width)
		y := rand.Intn(viewportSize.Height)
		if err := page.Mouse().Move(float64(x), float64(y)); err != nil {
			return err
		}
		if err := RandomDelay(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
