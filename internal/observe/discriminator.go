package observe

import (
	"sync"
	"time"

	"go-jobcard-manager/internal/scraper"
)

// Discriminator decides whether a dismiss control activation came from the
// user or from the engine. An event counts as engine-driven when it is not
// user-originated, when the control carried the engine marker, or when it
// lands within the cooldown of the previous classified event.
type Discriminator struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
}

func NewDiscriminator(cooldown time.Duration) *Discriminator {
	return &Discriminator{cooldown: cooldown}
}

// Manual classifies ev and reports whether it was a manual dismissal.
func (d *Discriminator) Manual(ev scraper.ControlEvent) bool {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	withinCooldown := !d.last.IsZero() && at.Sub(d.last) >= 0 && at.Sub(d.last) < d.cooldown
	d.last = at

	if ev.Source != scraper.SourceUser || ev.Marked {
		return false
	}
	return !withinCooldown
}
