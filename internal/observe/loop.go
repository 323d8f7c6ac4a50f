// Package observe watches the visible job cards, records cards the user
// dismissed and hides cards that are already dismissed.
package observe

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"go-jobcard-manager/internal/metrics"
	"go-jobcard-manager/internal/scraper"
	"go-jobcard-manager/internal/ttlset"
)

const (
	DefaultInterval = 300 * time.Millisecond
	DefaultDebounce = 250 * time.Millisecond
	DefaultCooldown = 50 * time.Millisecond
)

// Page is the part of the live job list the loop needs.
type Page interface {
	scraper.Snapshotter
	scraper.Instrumenter
	scraper.Renderer
}

// Store is where manual dismissals are recorded.
type Store interface {
	Has(id string) bool
	Add(id string) bool
	SetLastManual(id string)
}

// Dismissal describes one manual dismissal.
type Dismissal struct {
	ID      string
	Title   string
	Company string
	// Via is "control" when the dismiss button reported it, "gone" when the
	// card vanished from the visible set.
	Via string
	At  time.Time
}

type Options struct {
	Interval time.Duration
	Debounce time.Duration
	Cooldown time.Duration
	// Notify, if set, is called for every manual dismissal.
	Notify func(Dismissal)
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	return o
}

type Loop struct {
	page    Page
	store   Store
	pending *ttlset.Set
	immune  *ttlset.Set
	disc    *Discriminator
	opts    Options
	now     func() time.Time

	hiding atomic.Bool
	manual atomic.Int64
	hidden atomic.Int64

	// detectMu serializes diff passes
	detectMu   sync.Mutex
	mu         sync.Mutex
	snapshot   mapset.Set[string]
	previous   map[string]scraper.Card
	lastDetect time.Time
}

func NewLoop(page Page, store Store, pending, immune *ttlset.Set, opts Options) *Loop {
	opts = opts.withDefaults()
	return &Loop{
		page:     page,
		store:    store,
		pending:  pending,
		immune:   immune,
		disc:     NewDiscriminator(opts.Cooldown),
		opts:     opts,
		now:      time.Now,
		snapshot: mapset.NewSet[string](),
		previous: make(map[string]scraper.Card),
	}
}

func (l *Loop) SetHiding(enabled bool) { l.hiding.Store(enabled) }

func (l *Loop) Hiding() bool { return l.hiding.Load() }

// ManualCount is the number of manual dismissals recorded since start.
func (l *Loop) ManualCount() int { return int(l.manual.Load()) }

// HiddenCount is the number of cards hidden since start.
func (l *Loop) HiddenCount() int { return int(l.hidden.Load()) }

// SnapshotLen is the size of the last visible set.
func (l *Loop) SnapshotLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot.Cardinality()
}

// Reset forgets the previous snapshot, e.g. after the page navigated.
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshot = mapset.NewSet[string]()
	l.previous = make(map[string]scraper.Card)
	l.lastDetect = time.Time{}
}

// Run cycles until ctx ends. Page mutations schedule a trailing diff pass.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	var (
		trailing   *time.Timer
		trailingCh <-chan time.Time
	)
	schedule := func(d time.Duration) {
		if trailingCh != nil {
			return
		}
		if trailing == nil {
			trailing = time.NewTimer(d)
		} else {
			if !trailing.Stop() {
				select {
				case <-trailing.C:
				default:
				}
			}
			trailing.Reset(d)
		}
		trailingCh = trailing.C
	}
	defer func() {
		if trailing != nil {
			trailing.Stop()
		}
	}()

	cycle := func() {
		if wait := l.Cycle(ctx); wait > 0 {
			schedule(wait)
		}
	}

	log.Println("👀 Observation loop started")
	cycle()
	for {
		select {
		case <-ctx.Done():
			log.Println("👀 Observation loop stopped")
			return
		case <-ticker.C:
			cycle()
		case <-l.page.Mutations():
			schedule(l.opts.Debounce)
		case <-trailingCh:
			trailingCh = nil
			cycle()
		case ev := <-l.page.Events():
			l.HandleEvent(ctx, ev)
		}
	}
}

// Cycle runs one observation cycle: attach, debounced diff pass, hide pass.
// It returns how long until the diff pass is allowed again when it was skipped.
func (l *Loop) Cycle(ctx context.Context) time.Duration {
	l.Attach(ctx)
	wait := l.detectIfDue(ctx)
	if l.hiding.Load() {
		l.HidePass(ctx)
	}
	return wait
}

// Attach instruments new dismiss controls and handles queued control events.
func (l *Loop) Attach(ctx context.Context) int {
	n, err := l.page.Instrument(ctx)
	if err != nil {
		log.Printf("⚠️ Instrumenting dismiss controls failed: %v", err)
	}
	for {
		select {
		case ev := <-l.page.Events():
			l.HandleEvent(ctx, ev)
		default:
			return n
		}
	}
}

// HandleEvent classifies a control activation and records it when manual.
func (l *Loop) HandleEvent(ctx context.Context, ev scraper.ControlEvent) bool {
	if !l.disc.Manual(ev) {
		return false
	}
	at := ev.At
	if at.IsZero() {
		at = l.now()
	}
	return l.record(Dismissal{ID: ev.ID, Title: ev.Title, Company: ev.Company, Via: "control", At: at})
}

func (l *Loop) detectIfDue(ctx context.Context) time.Duration {
	l.mu.Lock()
	since := l.now().Sub(l.lastDetect)
	l.mu.Unlock()
	if since < l.opts.Debounce {
		return l.opts.Debounce - since
	}
	l.DetectGone(ctx)
	return 0
}

// DetectGone diffs the visible set against the previous snapshot, records
// unattributed disappearances as manual dismissals, expires pending entries
// that are no longer visible and replaces the snapshot. Returns the number
// of manual dismissals recorded.
func (l *Loop) DetectGone(ctx context.Context) int {
	l.detectMu.Lock()
	defer l.detectMu.Unlock()

	l.mu.Lock()
	l.lastDetect = l.now()
	l.mu.Unlock()

	cards, err := l.page.Cards(ctx)
	if err != nil {
		log.Printf("⚠️ Reading job cards failed, skipping diff: %v", err)
		return 0
	}

	current := mapset.NewSet[string]()
	byID := make(map[string]scraper.Card, len(cards))
	for _, c := range cards {
		if c.Visible() {
			current.Add(c.ID)
			byID[c.ID] = c
		}
	}

	l.mu.Lock()
	prev, prevCards := l.snapshot, l.previous
	l.mu.Unlock()

	gone := 0
	// an empty list is a re-render, not a mass dismissal
	if len(cards) > 0 {
		for _, id := range prev.Difference(current).ToSlice() {
			if l.pending.Has(id) {
				continue
			}
			c := prevCards[id]
			if l.record(Dismissal{ID: id, Title: c.Title, Company: c.Company, Via: "gone", At: l.now()}) {
				gone++
			}
		}
	}

	l.pending.Retain(func(id string) bool { return current.Contains(id) })

	l.mu.Lock()
	l.snapshot = current
	l.previous = byID
	l.mu.Unlock()
	return gone
}

// HidePass hides every card that is dismissed on the page or recorded in
// the store, except cards just restored by an undo.
func (l *Loop) HidePass(ctx context.Context) int {
	cards, err := l.page.Cards(ctx)
	if err != nil {
		log.Printf("⚠️ Reading job cards failed, skipping hide pass: %v", err)
		return 0
	}
	var ids []string
	for _, c := range cards {
		if c.Hidden || l.immune.Has(c.ID) {
			continue
		}
		if c.Dismissed || l.store.Has(c.ID) {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return 0
	}
	n, err := l.page.Hide(ctx, ids)
	if err != nil {
		log.Printf("⚠️ Hiding job cards failed: %v", err)
	}
	if n > 0 {
		l.hidden.Add(int64(n))
		metrics.Hidden.Add(float64(n))
		log.Printf("🙈 Hid %d dismissed job cards", n)
	}
	return n
}

func (l *Loop) record(d Dismissal) bool {
	if d.ID == "" || l.store.Has(d.ID) {
		return false
	}
	if !l.store.Add(d.ID) {
		return false
	}
	l.store.SetLastManual(d.ID)
	l.manual.Add(1)
	metrics.Dismissals.WithLabelValues("manual").Inc()
	log.Printf("👆 Manual dismissal recorded: %s %q (%s)", d.ID, d.Title, d.Via)
	if l.opts.Notify != nil {
		l.opts.Notify(d)
	}
	return true
}
