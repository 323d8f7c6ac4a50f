// Package engine wires the dismissal store, the observation loop and the
// action engine to one live page, and answers controller commands.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"go-jobcard-manager/internal/action"
	"go-jobcard-manager/internal/dismissal"
	"go-jobcard-manager/internal/observe"
	"go-jobcard-manager/internal/scraper"
	"go-jobcard-manager/internal/settings"
	"go-jobcard-manager/internal/ttlset"
)

const (
	DefaultFlushInterval    = time.Second
	DefaultPendingTTL       = 5 * time.Second
	DefaultImmunityWindow   = 10 * time.Second
	DefaultNavigationSettle = time.Second
	notifyTimeout           = 10 * time.Second

	taskObserve = "observe"
	taskAction  = "action"
	taskFlush   = "flush"
)

// Notifier is told about every manual dismissal.
type Notifier interface {
	NotifyDismissal(ctx context.Context, d observe.Dismissal) error
}

type Options struct {
	Observe          observe.Options
	Action           action.Options
	FlushInterval    time.Duration
	PendingTTL       time.Duration
	ImmunityWindow   time.Duration
	NavigationSettle time.Duration
	Notifier         Notifier
}

func (o Options) withDefaults() Options {
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.PendingTTL <= 0 {
		o.PendingTTL = DefaultPendingTTL
	}
	if o.ImmunityWindow <= 0 {
		o.ImmunityWindow = DefaultImmunityWindow
	}
	if o.NavigationSettle <= 0 {
		o.NavigationSettle = DefaultNavigationSettle
	}
	return o
}

type Engine struct {
	page    scraper.Page
	store   *dismissal.Store
	repo    *settings.Repository
	opts    Options
	reg     *Registry
	pending *ttlset.Set
	immune  *ttlset.Set
	loop    *observe.Loop
	actions *action.Engine
	started time.Time

	mu  sync.Mutex
	cur settings.Settings

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(page scraper.Page, store *dismissal.Store, repo *settings.Repository, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		page:    page,
		store:   store,
		repo:    repo,
		opts:    opts,
		reg:     NewRegistry(context.Background()),
		pending: ttlset.New(opts.PendingTTL),
		immune:  ttlset.New(opts.ImmunityWindow),
		cur:     settings.Defaults(),
	}
	obsOpts := opts.Observe
	if opts.Notifier != nil {
		obsOpts.Notify = e.notify
	}
	e.loop = observe.NewLoop(page, store, e.pending, e.immune, obsOpts)
	e.actions = action.NewEngine(page, store, e.pending, e.immune, e.reg, opts.Action)
	return e
}

// Start loads persisted state, starts the loops the settings enable and
// follows page navigations until Shutdown.
func (e *Engine) Start(ctx context.Context) error {
	e.started = time.Now()
	n := e.store.Load(ctx)

	s, err := e.repo.Load(ctx)
	if err != nil {
		log.Printf("⚠️ Using default settings: %v", err)
		s = settings.Defaults()
	}
	e.mu.Lock()
	e.cur = s
	e.mu.Unlock()

	e.startLoops()
	log.Printf("✅ Engine started on %s with %d dismissed jobs on record", e.page.Name(), n)

	navCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.followNavigations(navCtx)
	}()
	return nil
}

// Shutdown stops every loop and timer and flushes the store.
func (e *Engine) Shutdown(ctx context.Context) {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.reg.StopAll()
	if n := e.actions.ClearMarkers(ctx); n > 0 {
		log.Printf("🧹 Cleared %d engine markers", n)
	}
	e.store.Flush(ctx)
	log.Println("👋 Engine stopped")
}

// Settings returns the settings currently applied.
func (e *Engine) Settings() settings.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur
}

func (e *Engine) startLoops() {
	s := e.Settings()
	e.loop.SetHiding(s.Hiding)
	e.reg.Go(taskObserve, e.loop.Run)
	e.reg.Every(taskFlush, e.opts.FlushInterval, func(ctx context.Context) {
		if e.store.Dirty() {
			e.store.Flush(ctx)
		}
	})
	e.applyPolicies(s, false)
}

// applyPolicies pushes s to the action engine and starts or stops its loop.
// restart forces a fresh run, which also resets the ceiling.
func (e *Engine) applyPolicies(s settings.Settings, restart bool) {
	pol := policies(s)
	e.actions.SetPolicies(pol)
	switch {
	case !pol.Any():
		e.reg.Stop(taskAction)
	case restart || !e.reg.Running(taskAction):
		e.reg.Go(taskAction, e.actions.Run)
	}
}

func policies(s settings.Settings) action.Policies {
	return action.Policies{
		StoredID:  s.AutoDismissFromList,
		Company:   s.CompanyBlock,
		Keyword:   s.KeywordDismiss,
		Keywords:  s.Keywords,
		Companies: s.BlockedCompanies,
	}
}

func (e *Engine) followNavigations(ctx context.Context) {
	var (
		settle   *time.Timer
		settleCh <-chan time.Time
	)
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case url := <-e.page.Navigations():
			log.Printf("🔄 Page navigated to %s, restarting engine", url)
			e.reg.StopAll()
			e.store.Flush(ctx)
			e.loop.Reset()
			e.pending.Clear()
			if settle == nil {
				settle = time.NewTimer(e.opts.NavigationSettle)
			} else {
				if !settle.Stop() {
					select {
					case <-settle.C:
					default:
					}
				}
				settle.Reset(e.opts.NavigationSettle)
			}
			settleCh = settle.C
		case <-settleCh:
			settleCh = nil
			e.startLoops()
		}
	}
}

func (e *Engine) notify(d observe.Dismissal) {
	e.reg.After("notify", 0, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := e.opts.Notifier.NotifyDismissal(ctx, d); err != nil {
			log.Printf("⚠️ Dismissal notification failed: %v", err)
		}
	})
}
