// Package linkedin drives LinkedIn's job search list through playwright.
package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-jobcard-manager/internal/browser"
	"go-jobcard-manager/internal/config"
	"go-jobcard-manager/internal/scraper"
)

// inflightTTL bounds how long an engine click waits for its control event.
const inflightTTL = 5 * time.Second

type rawCard struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Company   string `json:"company"`
	Dismissed bool   `json:"dismissed"`
	Hidden    bool   `json:"hidden"`
}

// Page is a scraper.Page backed by a live playwright page.
type Page struct {
	page      playwright.Page
	selectors config.Selectors
	shots     *browser.ScreenshotDebugger

	events    chan scraper.ControlEvent
	mutations chan struct{}
	navs      chan string

	mu       sync.Mutex
	inflight map[string]time.Time
}

// New hooks the control and mutation bindings into page. shots may be nil.
func New(page playwright.Page, selectors config.Selectors, shots *browser.ScreenshotDebugger) (*Page, error) {
	p := &Page{
		page:      page,
		selectors: selectors,
		shots:     shots,
		events:    make(chan scraper.ControlEvent, 64),
		mutations: make(chan struct{}, 1),
		navs:      make(chan string, 4),
		inflight:  make(map[string]time.Time),
	}

	if err := page.ExposeFunction("__jobcardControl", p.onControl); err != nil {
		return nil, fmt.Errorf("expose control binding: %w", err)
	}
	if err := page.ExposeFunction("__jobcardMutation", p.onMutation); err != nil {
		return nil, fmt.Errorf("expose mutation binding: %w", err)
	}
	script := observerScript
	if err := page.AddInitScript(playwright.Script{Content: &script}); err != nil {
		return nil, fmt.Errorf("add observer script: %w", err)
	}
	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame != page.MainFrame() {
			return
		}
		select {
		case p.navs <- frame.URL():
		default:
		}
	})
	return p, nil
}

func (p *Page) Name() string {
	return "LinkedIn"
}

// Open loads url and waits for the job list.
func (p *Page) Open(ctx context.Context, url string) error {
	log.Printf("🌐 Visiting Job Search: %s", url)
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return fmt.Errorf("failed to load job search page: %w", err)
	}

	//verify login
	if _, err := p.page.WaitForSelector("#global-nav", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		log.Println("⚠️ Global nav not found, cookies may be stale")
	} else {
		log.Println("✅ Login confirmed.")
	}

	if _, err := p.page.Evaluate(observerScript); err != nil {
		log.Printf("⚠️ Installing mutation observer failed: %v", err)
	}

	//wait for job list
	if _, err := p.page.WaitForSelector(strings.Join(p.selectors.Card, ", "), playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(15000),
	}); err != nil {
		log.Println("⚠️ Job list not found or empty.")
		return nil
	}
	if err := browser.RandomDelay(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}
	if err := browser.MouseJiggle(ctx, p.page); err != nil {
		log.Printf("⚠️ Mouse jiggle failed: %v", err)
	}
	return browser.HumanScroll(ctx, p.page, 3)
}

func (p *Page) args(extra map[string]interface{}) map[string]interface{} {
	a := map[string]interface{}{
		"card":        p.selectors.Card,
		"idAttribute": p.selectors.IDAttribute,
		"container":   p.selectors.Container,
		"title":       p.selectors.Title,
		"company":     p.selectors.Company,
		"dismiss":     p.selectors.DismissButton,
		"undo":        p.selectors.UndoButton,
		"dismissed":   p.selectors.DismissedMarker,
	}
	for k, v := range extra {
		a[k] = v
	}
	return a
}

func (p *Page) eval(ctx context.Context, script string, extra map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Evaluate(script, p.args(extra))
}

func (p *Page) Cards(ctx context.Context) ([]scraper.Card, error) {
	res, err := p.eval(ctx, cardsScript, nil)
	if err != nil {
		return nil, fmt.Errorf("read job cards: %w", err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode job cards: %w", err)
	}
	var raw []rawCard
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode job cards: %w", err)
	}
	cards := make([]scraper.Card, len(raw))
	for i, r := range raw {
		cards[i] = scraper.Card{
			ID:        r.ID,
			Title:     r.Title,
			Company:   r.Company,
			Dismissed: r.Dismissed,
			Hidden:    r.Hidden,
		}
	}
	return cards, nil
}

func (p *Page) Instrument(ctx context.Context) (int, error) {
	res, err := p.eval(ctx, instrumentScript, nil)
	if err != nil {
		return 0, fmt.Errorf("instrument dismiss controls: %w", err)
	}
	return toInt(res), nil
}

func (p *Page) Events() <-chan scraper.ControlEvent { return p.events }

func (p *Page) Mutations() <-chan struct{} { return p.mutations }

func (p *Page) Navigations() <-chan string { return p.navs }

// Dismiss clicks the card's dismiss control. Engine clicks are remembered so
// the control event they fire is attributed to the engine.
func (p *Page) Dismiss(ctx context.Context, id string, src scraper.Source) error {
	if src == scraper.SourceEngine {
		p.mu.Lock()
		p.inflight[id] = time.Now()
		p.mu.Unlock()
	}
	res, err := p.eval(ctx, dismissScript, map[string]interface{}{"id": id})
	if err != nil {
		p.takeInflight(id)
		return fmt.Errorf("dismiss job %s: %w", id, err)
	}
	if ok, _ := res.(bool); !ok {
		p.takeInflight(id)
		return scraper.ErrControlDetached
	}
	return nil
}

func (p *Page) SetMarker(ctx context.Context, id string, on bool) error {
	if _, err := p.eval(ctx, markerScript, map[string]interface{}{"id": id, "on": on}); err != nil {
		return fmt.Errorf("mark job %s: %w", id, err)
	}
	return nil
}

func (p *Page) Hide(ctx context.Context, ids []string) (int, error) {
	res, err := p.eval(ctx, hideScript, map[string]interface{}{"ids": ids})
	if err != nil {
		return 0, fmt.Errorf("hide job cards: %w", err)
	}
	return toInt(res), nil
}

func (p *Page) Restore(ctx context.Context, id string) error {
	if _, err := p.eval(ctx, restoreScript, map[string]interface{}{"id": id}); err != nil {
		return fmt.Errorf("restore job %s: %w", id, err)
	}
	return nil
}

func (p *Page) UnhideAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	res, err := p.page.Evaluate(unhideAllScript)
	if err != nil {
		return 0, fmt.Errorf("unhide job cards: %w", err)
	}
	return toInt(res), nil
}

// Screenshot captures the page for debugging.
func (p *Page) Screenshot(name string) (string, error) {
	if p.shots == nil {
		return "", fmt.Errorf("screenshots disabled")
	}
	return p.shots.Capture(p.page, name)
}

func (p *Page) onControl(args ...interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	m, ok := args[0].(map[string]interface{})
	if !ok {
		return nil
	}
	ev := scraper.ControlEvent{At: time.Now()}
	ev.ID, _ = m["id"].(string)
	ev.Title, _ = m["title"].(string)
	ev.Company, _ = m["company"].(string)
	ev.Marked, _ = m["marked"].(bool)
	trusted, _ := m["trusted"].(bool)

	switch {
	case p.takeInflight(ev.ID):
		ev.Source = scraper.SourceEngine
	case trusted:
		ev.Source = scraper.SourceUser
	default:
		ev.Source = scraper.SourceSynthetic
	}

	select {
	case p.events <- ev:
	default:
		log.Printf("⚠️ Dropping control event for job %s, queue full", ev.ID)
	}
	return nil
}

func (p *Page) onMutation(args ...interface{}) interface{} {
	select {
	case p.mutations <- struct{}{}:
	default:
	}
	return nil
}

func (p *Page) takeInflight(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, ok := p.inflight[id]
	if !ok {
		return false
	}
	delete(p.inflight, id)
	return time.Since(at) < inflightTTL
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
