// Define the page provider contract the engine works against.
// The live job list is an external collaborator: the engine only reads
// snapshots of it and asks it to act on cards by id.

package scraper

import (
	"context"
	"errors"
	"time"
)

// ErrControlDetached is returned when a card's dismiss control is no longer
// attached to the live page.
var ErrControlDetached = errors.New("dismiss control detached")

// Card is one job card as the page renders it right now.
type Card struct {
	ID      string
	Title   string
	Company string
	// Dismissed is set when the page itself shows the card as dismissed.
	Dismissed bool
	// Hidden is set when our hide pass has hidden the card.
	Hidden bool
}

// Visible reports whether the card still counts toward the visible set.
func (c Card) Visible() bool {
	return !c.Dismissed && !c.Hidden
}

// Source says who triggered a dismiss control.
type Source int

const (
	SourceUser Source = iota
	SourceEngine
	// SourceSynthetic is a scripted, non user-originated event.
	SourceSynthetic
)

func (s Source) String() string {
	switch s {
	case SourceUser:
		return "user"
	case SourceEngine:
		return "engine"
	case SourceSynthetic:
		return "synthetic"
	}
	return "unknown"
}

// ControlEvent is fired when an instrumented dismiss control is activated.
type ControlEvent struct {
	ID      string
	Title   string
	Company string
	Source  Source
	// Marked is set when the control carried the engine-acting marker.
	Marked bool
	At     time.Time
}

// Snapshotter reads the current cards.
type Snapshotter interface {
	Cards(ctx context.Context) ([]Card, error)
}

// Instrumenter attaches listeners to dismiss controls not yet instrumented
// and reports their activations and page mutations.
type Instrumenter interface {
	Instrument(ctx context.Context) (int, error)
	Events() <-chan ControlEvent
	Mutations() <-chan struct{}
}

// Actuator acts on a card's dismiss control.
type Actuator interface {
	Dismiss(ctx context.Context, id string, src Source) error
	SetMarker(ctx context.Context, id string, on bool) error
}

// Renderer changes how cards are displayed.
type Renderer interface {
	Hide(ctx context.Context, ids []string) (int, error)
	Restore(ctx context.Context, id string) error
	UnhideAll(ctx context.Context) (int, error)
}

// Page is everything the engine needs from the live job list.
type Page interface {
	Snapshotter
	Instrumenter
	Actuator
	Renderer
	// Navigations reports main-frame navigations by URL.
	Navigations() <-chan string
	// Name is the platform name
	Name() string
}

// Visible filters cards down to the visible ones.
func Visible(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.Visible() {
			out = append(out, c)
		}
	}
	return out
}
