// Package action auto-dismisses job cards that match the enabled policies.
package action

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go-jobcard-manager/internal/browser"
	"go-jobcard-manager/internal/filter"
	"go-jobcard-manager/internal/metrics"
	"go-jobcard-manager/internal/scraper"
	"go-jobcard-manager/internal/ttlset"
)

const (
	DefaultInterval   = time.Second
	DefaultCeiling    = 10 * time.Minute
	DefaultMarkerHold = 500 * time.Millisecond
)

var (
	DefaultJitter = browser.Jitter{Min: 20 * time.Millisecond, Max: 80 * time.Millisecond}
	DefaultPace   = browser.Jitter{Min: 150 * time.Millisecond, Max: 400 * time.Millisecond}
)

type Page interface {
	scraper.Snapshotter
	scraper.Actuator
}

type Store interface {
	Has(id string) bool
	Add(id string) bool
}

// Scheduler runs delayed work that must stop with the engine.
type Scheduler interface {
	After(name string, d time.Duration, fn func(ctx context.Context))
}

// Policies are checked in a fixed order: stored id, company, keyword.
type Policies struct {
	StoredID  bool
	Company   bool
	Keyword   bool
	Keywords  []string
	Companies []string
}

// Any reports whether at least one policy is enabled.
func (p Policies) Any() bool {
	return p.StoredID || p.Company || p.Keyword
}

type Options struct {
	Interval   time.Duration
	Ceiling    time.Duration
	MarkerHold time.Duration
	// Jitter is waited between marking a card and clicking it.
	Jitter *browser.Jitter
	// Pace is waited after each dismissal before the next card.
	Pace *browser.Jitter
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Ceiling <= 0 {
		o.Ceiling = DefaultCeiling
	}
	if o.MarkerHold <= 0 {
		o.MarkerHold = DefaultMarkerHold
	}
	if o.Jitter == nil {
		j := DefaultJitter
		o.Jitter = &j
	}
	if o.Pace == nil {
		p := DefaultPace
		o.Pace = &p
	}
	return o
}

type Engine struct {
	page    Page
	store   Store
	pending *ttlset.Set
	immune  *ttlset.Set
	sched   Scheduler
	opts    Options

	mu       sync.RWMutex
	policies Policies

	// cycleMu keeps manual runs and the loop from acting on the same card
	cycleMu   sync.Mutex
	dismissed atomic.Int64

	// markedMu guards ids whose engine marker is still on the page
	markedMu sync.Mutex
	marked   map[string]struct{}
}

// NewEngine builds an engine. sched may be nil, in which case marker
// removal uses a plain timer.
func NewEngine(page Page, store Store, pending, immune *ttlset.Set, sched Scheduler, opts Options) *Engine {
	return &Engine{
		page:    page,
		store:   store,
		pending: pending,
		immune:  immune,
		sched:   sched,
		opts:    opts.withDefaults(),
		marked:  make(map[string]struct{}),
	}
}

func (e *Engine) SetPolicies(p Policies) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies = p
}

func (e *Engine) Policies() Policies {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policies
}

// Dismissed is the number of cards the engine dismissed since start.
func (e *Engine) Dismissed() int { return int(e.dismissed.Load()) }

// Match returns the policy that selects c, if any.
func (e *Engine) Match(c scraper.Card) (string, bool) {
	return match(e.Policies(), e.store, c)
}

func match(p Policies, store Store, c scraper.Card) (string, bool) {
	if p.StoredID && store.Has(c.ID) {
		return "stored id", true
	}
	if p.Company {
		if term, ok := filter.MatchCompany(c.Company, p.Companies); ok {
			return "company " + term, true
		}
	}
	if p.Keyword {
		if term, ok := filter.MatchKeyword(c.Title, p.Keywords); ok {
			return "keyword " + term, true
		}
	}
	return "", false
}

// Run dismisses matching cards every interval until ctx ends or the ceiling
// is reached. Starting a new Run resets the ceiling.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Ceiling)
	defer cancel()

	log.Printf("🤖 Auto-dismiss started (stops after %s)", e.opts.Ceiling)
	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	e.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.Printf("⏱️ Auto-dismiss stopped after %s", e.opts.Ceiling)
			} else {
				log.Println("🤖 Auto-dismiss stopped")
			}
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle walks the cards once and dismisses every card a policy selects.
// Returns the number dismissed.
func (e *Engine) RunCycle(ctx context.Context) int {
	pol := e.Policies()
	if !pol.Any() {
		return 0
	}

	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	cards, err := e.page.Cards(ctx)
	if err != nil {
		log.Printf("⚠️ Reading job cards failed, skipping dismiss cycle: %v", err)
		return 0
	}

	n := 0
	for _, c := range cards {
		if ctx.Err() != nil {
			break
		}
		if c.Dismissed || e.pending.Has(c.ID) || e.immune.Has(c.ID) {
			continue
		}
		reason, ok := match(pol, e.store, c)
		if !ok {
			continue
		}
		if !e.dismiss(ctx, c, reason) {
			continue
		}
		n++
		if err := e.opts.Pace.Wait(ctx); err != nil {
			break
		}
	}
	return n
}

func (e *Engine) dismiss(ctx context.Context, c scraper.Card, reason string) bool {
	e.pending.Add(c.ID)
	if err := e.page.SetMarker(ctx, c.ID, true); err != nil {
		log.Printf("⚠️ Marking job %s failed: %v", c.ID, err)
	}
	e.markedMu.Lock()
	e.marked[c.ID] = struct{}{}
	e.markedMu.Unlock()
	defer e.after("marker", e.opts.MarkerHold, func(ctx context.Context) {
		e.unmark(ctx, c.ID)
	})

	if err := e.opts.Jitter.Wait(ctx); err != nil {
		e.pending.Remove(c.ID)
		return false
	}

	err := e.page.Dismiss(ctx, c.ID, scraper.SourceEngine)
	if errors.Is(err, scraper.ErrControlDetached) {
		e.pending.Remove(c.ID)
		return false
	}
	if err != nil {
		e.pending.Remove(c.ID)
		log.Printf("⚠️ Dismissing job %s failed: %v", c.ID, err)
		return false
	}

	e.store.Add(c.ID)
	e.dismissed.Add(1)
	metrics.Dismissals.WithLabelValues("engine").Inc()
	log.Printf("🚫 Dismissed %s %q at %s (%s)", c.ID, c.Title, c.Company, reason)
	return true
}

func (e *Engine) after(name string, d time.Duration, fn func(ctx context.Context)) {
	if e.sched != nil {
		e.sched.After(name, d, fn)
		return
	}
	time.AfterFunc(d, func() { fn(context.Background()) })
}

func (e *Engine) unmark(ctx context.Context, id string) {
	e.markedMu.Lock()
	_, ok := e.marked[id]
	delete(e.marked, id)
	e.markedMu.Unlock()
	if !ok {
		return
	}
	if err := e.page.SetMarker(ctx, id, false); err != nil {
		log.Printf("⚠️ Unmarking job %s failed: %v", id, err)
	}
}

// ClearMarkers removes every engine marker still on the page, e.g. when the
// timers that would have removed them were stopped. Returns how many were cleared.
func (e *Engine) ClearMarkers(ctx context.Context) int {
	e.markedMu.Lock()
	ids := make([]string, 0, len(e.marked))
	for id := range e.marked {
		ids = append(ids, id)
	}
	e.markedMu.Unlock()

	for _, id := range ids {
		e.unmark(ctx, id)
	}
	return len(ids)
}
