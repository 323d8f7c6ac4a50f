package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobcard-manager/internal/browser"
	"go-jobcard-manager/internal/dismissal"
	"go-jobcard-manager/internal/scraper"
	"go-jobcard-manager/internal/scraper/scrapertest"
	"go-jobcard-manager/internal/storage"
	"go-jobcard-manager/internal/ttlset"
)

type fixture struct {
	page    *scrapertest.Page
	store   *dismissal.Store
	pending *ttlset.Set
	immune  *ttlset.Set
	engine  *Engine
}

func newFixture(t *testing.T, opts Options, cards ...scraper.Card) *fixture {
	t.Helper()
	if opts.Jitter == nil {
		opts.Jitter = &browser.Jitter{}
	}
	if opts.Pace == nil {
		opts.Pace = &browser.Jitter{}
	}
	if opts.MarkerHold == 0 {
		opts.MarkerHold = time.Millisecond
	}
	f := &fixture{
		page:    scrapertest.NewPage(cards...),
		store:   dismissal.NewStore(storage.NewMemoryArea(), storage.NewMemoryArea(), dismissal.Options{}),
		pending: ttlset.New(5 * time.Second),
		immune:  ttlset.New(10 * time.Second),
	}
	t.Cleanup(f.store.Close)
	f.engine = NewEngine(f.page, f.store, f.pending, f.immune, nil, opts)
	return f
}

func TestKeywordPolicyDismissesRecruiter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{},
		scraper.Card{ID: "4001", Title: "Senior Recruiter - Remote", Company: "Acme"},
		scraper.Card{ID: "4002", Title: "Go Developer", Company: "Acme"},
	)
	f.engine.SetPolicies(Policies{Keyword: true, Keywords: []string{"recruiter"}})

	assert.Equal(t, 1, f.engine.RunCycle(ctx))
	assert.Equal(t, []string{"4001"}, f.page.Dismissals)
	assert.True(t, f.store.Has("4001"))
	assert.False(t, f.store.Has("4002"))
	assert.True(t, f.pending.Has("4001"), "pending until the observation loop sees it gone")
	assert.Empty(t, f.store.LastManual())

	assert.Eventually(t, func() bool { return !f.page.Marked("4001") }, time.Second, time.Millisecond)

	assert.Zero(t, f.engine.RunCycle(ctx), "already dismissed cards are skipped")
	assert.Equal(t, 1, f.engine.Dismissed())
}

func TestPolicyPrecedence(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.Add("5001")
	f.engine.SetPolicies(Policies{
		StoredID:  true,
		Company:   true,
		Keyword:   true,
		Companies: []string{"globex"},
		Keywords:  []string{"sales"},
	})

	tests := []struct {
		name string
		card scraper.Card
		want string
		ok   bool
	}{
		{"stored id wins", scraper.Card{ID: "5001", Title: "Sales Lead", Company: "Globex"}, "stored id", true},
		{"company before keyword", scraper.Card{ID: "5002", Title: "Sales Lead", Company: "Globex Corp"}, "company globex", true},
		{"keyword", scraper.Card{ID: "5003", Title: "Sales Lead", Company: "Initech"}, "keyword sales", true},
		{"no match", scraper.Card{ID: "5004", Title: "Go Developer", Company: "Initech"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.engine.Match(tt.card)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisabledPoliciesDoNothing(t *testing.T) {
	f := newFixture(t, Options{}, scraper.Card{ID: "6001", Title: "Recruiter"})
	f.engine.SetPolicies(Policies{Keywords: []string{"recruiter"}})
	assert.Zero(t, f.engine.RunCycle(context.Background()))
	assert.Empty(t, f.page.Dismissals)
}

func TestSkipsPendingImmuneAndDismissed(t *testing.T) {
	f := newFixture(t, Options{},
		scraper.Card{ID: "7001", Title: "Recruiter"},
		scraper.Card{ID: "7002", Title: "Recruiter"},
		scraper.Card{ID: "7003", Title: "Recruiter", Dismissed: true},
		scraper.Card{ID: "7004", Title: "Recruiter"},
	)
	f.pending.Add("7001")
	f.immune.Add("7002")
	f.engine.SetPolicies(Policies{Keyword: true, Keywords: []string{"recruiter"}})

	assert.Equal(t, 1, f.engine.RunCycle(context.Background()))
	assert.Equal(t, []string{"7004"}, f.page.Dismissals)
}

func TestDetachedControlIsNoOp(t *testing.T) {
	f := newFixture(t, Options{}, scraper.Card{ID: "8001", Title: "Recruiter"})
	f.page.Detach("8001")
	f.engine.SetPolicies(Policies{Keyword: true, Keywords: []string{"recruiter"}})

	assert.Zero(t, f.engine.RunCycle(context.Background()))
	assert.False(t, f.pending.Has("8001"))
	assert.False(t, f.store.Has("8001"))
}

func TestRunStopsAtCeiling(t *testing.T) {
	f := newFixture(t, Options{Interval: 5 * time.Millisecond, Ceiling: 30 * time.Millisecond})
	f.engine.SetPolicies(Policies{Keyword: true, Keywords: []string{"recruiter"}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.engine.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop at its ceiling")
	}
}

func TestRunPicksUpNewCards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, Options{Interval: 5 * time.Millisecond})
	f.engine.SetPolicies(Policies{Company: true, Companies: []string{"acme"}})

	go f.engine.Run(ctx)
	f.page.Append(scraper.Card{ID: "9001", Title: "Engineer", Company: "ACME Inc."})

	require.Eventually(t, func() bool { return f.store.Has("9001") }, time.Second, time.Millisecond)
	assert.Equal(t, 1, f.page.DismissCount())
}

// stoppedScheduler drops every timer, like a registry that was stopped
// before the marker hold elapsed.
type stoppedScheduler struct{ dropped int }

func (s *stoppedScheduler) After(name string, d time.Duration, fn func(ctx context.Context)) {
	s.dropped++
}

func TestClearMarkersAfterTimersStopped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{}, scraper.Card{ID: "9101", Title: "Recruiter"})
	sched := &stoppedScheduler{}
	f.engine = NewEngine(f.page, f.store, f.pending, f.immune, sched, Options{
		Jitter: &browser.Jitter{},
		Pace:   &browser.Jitter{},
	})
	f.engine.SetPolicies(Policies{Keyword: true, Keywords: []string{"recruiter"}})

	require.Equal(t, 1, f.engine.RunCycle(ctx))
	assert.Equal(t, 1, sched.dropped)
	assert.True(t, f.page.Marked("9101"), "marker stays while its timer never fired")

	assert.Equal(t, 1, f.engine.ClearMarkers(ctx))
	assert.False(t, f.page.Marked("9101"))
	assert.Zero(t, f.engine.ClearMarkers(ctx))
}
