// Package scrapertest provides an in-memory job list for engine tests.
package scrapertest

import (
	"context"
	"sync"
	"time"

	"go-jobcard-manager/internal/scraper"
)

type card struct {
	scraper.Card
	marked       bool
	instrumented bool
	detached     bool
}

// Page is an in-memory scraper.Page. Dismissing a card marks it dismissed
// and, if its control is instrumented, fires a ControlEvent.
type Page struct {
	mu        sync.Mutex
	cards     []*card
	events    chan scraper.ControlEvent
	mutations chan struct{}
	navs      chan string

	Dismissals []string
	// CardsErr, when set, is returned by Cards.
	CardsErr error
}

func NewPage(cards ...scraper.Card) *Page {
	p := &Page{
		events:    make(chan scraper.ControlEvent, 64),
		mutations: make(chan struct{}, 64),
		navs:      make(chan string, 4),
	}
	for _, c := range cards {
		p.cards = append(p.cards, &card{Card: c})
	}
	return p
}

func (p *Page) Name() string { return "fake" }

func (p *Page) find(id string) *card {
	for _, c := range p.cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (p *Page) Cards(ctx context.Context) ([]scraper.Card, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CardsErr != nil {
		return nil, p.CardsErr
	}
	out := make([]scraper.Card, 0, len(p.cards))
	for _, c := range p.cards {
		out = append(out, c.Card)
	}
	return out, nil
}

func (p *Page) Instrument(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.cards {
		if !c.instrumented && !c.Dismissed && !c.detached {
			c.instrumented = true
			n++
		}
	}
	return n, nil
}

func (p *Page) Events() <-chan scraper.ControlEvent { return p.events }

func (p *Page) Mutations() <-chan struct{} { return p.mutations }

func (p *Page) Navigations() <-chan string { return p.navs }

func (p *Page) Dismiss(ctx context.Context, id string, src scraper.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.find(id)
	if c == nil || c.detached {
		return scraper.ErrControlDetached
	}
	p.dismissLocked(c, src)
	p.Dismissals = append(p.Dismissals, id)
	return nil
}

func (p *Page) dismissLocked(c *card, src scraper.Source) {
	c.Dismissed = true
	if c.instrumented {
		select {
		case p.events <- scraper.ControlEvent{
			ID:      c.ID,
			Title:   c.Title,
			Company: c.Company,
			Source:  src,
			Marked:  c.marked,
			At:      time.Now(),
		}:
		default:
		}
	}
	p.notifyLocked()
}

func (p *Page) SetMarker(ctx context.Context, id string, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.find(id); c != nil {
		c.marked = on
	}
	return nil
}

func (p *Page) Hide(ctx context.Context, ids []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, id := range ids {
		if c := p.find(id); c != nil && !c.Hidden {
			c.Hidden = true
			n++
		}
	}
	return n, nil
}

func (p *Page) Restore(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.find(id); c != nil {
		c.Hidden = false
		c.Dismissed = false
	}
	return nil
}

func (p *Page) UnhideAll(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.cards {
		if c.Hidden {
			c.Hidden = false
			n++
		}
	}
	return n, nil
}

// UserDismiss simulates a user clicking a card's dismiss control.
func (p *Page) UserDismiss(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.find(id); c != nil {
		p.dismissLocked(c, scraper.SourceUser)
	}
}

// Drop removes a card from the page without any control event.
func (p *Page) Drop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.cards {
		if c.ID == id {
			p.cards = append(p.cards[:i], p.cards[i+1:]...)
			break
		}
	}
	p.notifyLocked()
}

// Append adds cards as if the list had loaded more results.
func (p *Page) Append(cards ...scraper.Card) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range cards {
		p.cards = append(p.cards, &card{Card: c})
	}
	p.notifyLocked()
}

// Detach makes a card's dismiss control unreachable.
func (p *Page) Detach(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.find(id); c != nil {
		c.detached = true
	}
}

// Navigate reports a main-frame navigation.
func (p *Page) Navigate(url string) {
	p.navs <- url
}

// Card returns the current state of one card.
func (p *Page) Card(id string) (scraper.Card, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.find(id); c != nil {
		return c.Card, true
	}
	return scraper.Card{}, false
}

func (p *Page) DismissCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Dismissals)
}

func (p *Page) notifyLocked() {
	select {
	case p.mutations <- struct{}{}:
	default:
	}
}

// Marked reports whether the engine marker is set on a card.
func (p *Page) Marked(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.find(id); c != nil {
		return c.marked
	}
	return false
}
