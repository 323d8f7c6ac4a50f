package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go-jobcard-manager/internal/filter"
	"go-jobcard-manager/internal/metrics"
	"go-jobcard-manager/internal/settings"
)

const (
	StatusOK    = "ok"
	StatusReady = "ready"
	StatusError = "error"
)

type screenshotter interface {
	Screenshot(name string) (string, error)
}

// Command is one controller request.
type Command struct {
	Action    string   `json:"action"`
	Enabled   bool     `json:"enabled,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Companies []string `json:"companies,omitempty"`
	ID        string   `json:"id,omitempty"`
}

// Response is a short status message, with a count where one applies.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
}

// Stats is the engine state reported by getStats.
type Stats struct {
	Dismissed       int       `json:"dismissed"`
	Synced          int       `json:"synced"`
	Visible         int       `json:"visible"`
	Hidden          int       `json:"hidden"`
	ManualRecorded  int       `json:"manualRecorded"`
	EngineDismissed int       `json:"engineDismissed"`
	Pending         int       `json:"pending"`
	Immune          int       `json:"immune"`
	LastManual      string    `json:"lastManual,omitempty"`
	Hiding          bool      `json:"hiding"`
	AutoDismiss     bool      `json:"autoDismiss"`
	KeywordDismiss  bool      `json:"keywordDismiss"`
	CompanyBlock    bool      `json:"companyBlock"`
	Keywords        int       `json:"keywords"`
	Companies       int       `json:"companies"`
	Since           time.Time `json:"since"`
}

// Handle runs one command. Failures come back as an error status, never as a panic.
func (e *Engine) Handle(ctx context.Context, cmd Command) Response {
	resp := e.handle(ctx, cmd)
	metrics.Commands.WithLabelValues(cmd.Action, resp.Status).Inc()
	if resp.Status == StatusError {
		log.Printf("❌ Command %s failed: %s", cmd.Action, resp.Message)
	} else if cmd.Action != "ping" && cmd.Action != "getStats" {
		log.Printf("📋 %s: %s", cmd.Action, resp.Message)
	}
	return resp
}

func (e *Engine) handle(ctx context.Context, cmd Command) Response {
	switch cmd.Action {
	case "ping":
		return Response{Status: StatusReady}
	case "toggleHiding":
		return e.toggle(ctx, settings.KeyHiding, cmd.Enabled, "Job hiding")
	case "toggleAutoDismiss":
		return e.toggle(ctx, settings.KeyAutoDismiss, cmd.Enabled, "Auto-dismissing")
	case "toggleKeywordDismiss":
		return e.toggle(ctx, settings.KeyKeywordDismiss, cmd.Enabled, "Keyword dismissing")
	case "toggleCompanyBlock":
		return e.toggle(ctx, settings.KeyCompanyBlock, cmd.Enabled, "Company blocking")
	case "updateKeywords":
		return e.updateList(ctx, settings.KeyKeywords, cmd.Keywords, "keyword")
	case "updateCompanies":
		return e.updateList(ctx, settings.KeyCompanies, cmd.Companies, "blocked company")
	case "hideNow":
		n := e.loop.HidePass(ctx)
		return Response{Status: StatusOK, Message: fmt.Sprintf("Hidden %d dismissed job card(s)", n), Count: n}
	case "dismissNow":
		n := e.actions.RunCycle(ctx)
		return Response{Status: StatusOK, Message: fmt.Sprintf("Dismissed %d job(s)", n), Count: n}
	case "showHidden":
		return e.showHidden(ctx)
	case "clearDismissed":
		n := e.store.Len()
		e.store.Clear(ctx)
		e.pending.Clear()
		return Response{Status: StatusOK, Message: fmt.Sprintf("Cleared %d dismissed job record(s)", n), Count: n}
	case "undoLast":
		return e.undo(ctx, cmd.ID)
	case "getStats":
		st := e.Stats()
		return Response{
			Status:  StatusOK,
			Message: fmt.Sprintf("%d dismissed (%d synced), %d visible, %d manual, %d by engine", st.Dismissed, st.Synced, st.Visible, st.ManualRecorded, st.EngineDismissed),
			Count:   st.Dismissed,
		}
	case "runAll":
		return e.runAll(ctx)
	case "debugCards":
		return e.debugCards(ctx)
	case "debugCompanies":
		return e.debugCompanies(ctx)
	}
	return Response{Status: StatusError, Message: fmt.Sprintf("unknown action %q", cmd.Action)}
}

func (e *Engine) toggle(ctx context.Context, key string, enabled bool, feature string) Response {
	if err := e.repo.SetFlag(ctx, key, enabled); err != nil {
		log.Printf("⚠️ %v", err)
	}

	e.mu.Lock()
	switch key {
	case settings.KeyHiding:
		e.cur.Hiding = enabled
	case settings.KeyAutoDismiss:
		e.cur.AutoDismissFromList = enabled
	case settings.KeyKeywordDismiss:
		e.cur.KeywordDismiss = enabled
	case settings.KeyCompanyBlock:
		e.cur.CompanyBlock = enabled
	}
	s := e.cur
	e.mu.Unlock()

	if key == settings.KeyHiding {
		e.loop.SetHiding(enabled)
	} else {
		e.applyPolicies(s, enabled)
	}

	state := "stopped"
	if enabled {
		state = "started"
	}
	return Response{Status: StatusOK, Message: feature + " " + state}
}

func (e *Engine) updateList(ctx context.Context, key string, terms []string, label string) Response {
	list, err := e.repo.SetList(ctx, key, terms)
	if err != nil {
		log.Printf("⚠️ %v", err)
	}

	e.mu.Lock()
	if key == settings.KeyKeywords {
		e.cur.Keywords = list
	} else {
		e.cur.BlockedCompanies = list
	}
	s := e.cur
	e.mu.Unlock()

	// a running engine restarts with the new list, like a fresh activation
	e.applyPolicies(s, e.reg.Running(taskAction))
	return Response{Status: StatusOK, Message: fmt.Sprintf("Updated %d %s(s)", len(list), label), Count: len(list)}
}

// showHidden restores every hidden card and pauses hiding so they stay visible.
func (e *Engine) showHidden(ctx context.Context) Response {
	n, err := e.page.UnhideAll(ctx)
	if err != nil {
		return Response{Status: StatusError, Message: fmt.Sprintf("restore hidden jobs: %v", err)}
	}
	msg := fmt.Sprintf("Restored %d hidden job card(s)", n)
	if e.loop.Hiding() {
		e.toggle(ctx, settings.KeyHiding, false, "Job hiding")
		msg += ", hiding paused"
	}
	return Response{Status: StatusOK, Message: msg, Count: n}
}

// undo forgets a dismissal, id defaulting to the last manual one, and gives
// the card a grace window before it can be hidden or dismissed again.
func (e *Engine) undo(ctx context.Context, id string) Response {
	id = strings.TrimSpace(id)
	if id == "" {
		id = e.store.LastManual()
	}
	if id == "" {
		return Response{Status: StatusError, Message: "nothing to undo"}
	}
	if !e.store.Has(id) {
		return Response{Status: StatusError, Message: fmt.Sprintf("job %s is not dismissed", id)}
	}

	e.immune.Add(id)
	e.pending.Remove(id)
	e.store.Remove(ctx, id)
	if err := e.page.Restore(ctx, id); err != nil {
		log.Printf("⚠️ Restoring card %s failed: %v", id, err)
	}
	return Response{Status: StatusOK, Message: fmt.Sprintf("Restored job %s", id), Count: 1}
}

func (e *Engine) runAll(ctx context.Context) Response {
	s := e.Settings()
	var results []string
	total := 0

	if s.Hiding {
		if n := e.loop.HidePass(ctx); n > 0 {
			results = append(results, fmt.Sprintf("%d dismissed jobs hidden", n))
			total += n
		}
	}
	if policies(s).Any() {
		if n := e.actions.RunCycle(ctx); n > 0 {
			results = append(results, fmt.Sprintf("%d jobs dismissed", n))
			total += n
		}
	}
	if len(results) == 0 {
		return Response{Status: StatusOK, Message: "No actions needed - all jobs already processed"}
	}
	return Response{Status: StatusOK, Message: strings.Join(results, ", "), Count: total}
}

func (e *Engine) debugCards(ctx context.Context) Response {
	cards, err := e.page.Cards(ctx)
	if err != nil {
		return Response{Status: StatusError, Message: fmt.Sprintf("read cards: %v", err)}
	}
	n := min(5, len(cards))
	log.Printf("🔍 Found %d job cards", len(cards))
	for i, c := range cards[:n] {
		reason, matched := e.actions.Match(c)
		log.Printf("   %d. id=%s title=%q company=%q dismissed=%t hidden=%t stored=%t match=%q(%t)",
			i+1, c.ID, c.Title, c.Company, c.Dismissed, c.Hidden, e.store.Has(c.ID), reason, matched)
	}
	msg := fmt.Sprintf("Debugged %d jobs - check the log", n)
	if shooter, ok := e.page.(screenshotter); ok {
		if path, err := shooter.Screenshot("debug_cards"); err != nil {
			log.Printf("⚠️ %v", err)
		} else {
			msg += ", screenshot at " + path
		}
	}
	return Response{Status: StatusOK, Message: msg, Count: n}
}

// debugCompanies logs every visible card's company label and whether a
// blocked company matches it, regardless of the company blocking toggle.
func (e *Engine) debugCompanies(ctx context.Context) Response {
	cards, err := e.page.Cards(ctx)
	if err != nil {
		return Response{Status: StatusError, Message: fmt.Sprintf("read cards: %v", err)}
	}
	blocked := e.Settings().BlockedCompanies
	matched := 0
	log.Printf("🏢 Checking %d job cards against %d blocked companies", len(cards), len(blocked))
	for _, c := range cards {
		term, ok := filter.MatchCompany(c.Company, blocked)
		if ok {
			matched++
			log.Printf("   🚫 %s company=%q matches %q", c.ID, c.Company, term)
		} else {
			log.Printf("   ✅ %s company=%q", c.ID, c.Company)
		}
	}
	return Response{
		Status:  StatusOK,
		Message: fmt.Sprintf("Found %d blocked company job(s) out of %d - check the log", matched, len(cards)),
		Count:   matched,
	}
}

// Stats snapshots the engine state.
func (e *Engine) Stats() Stats {
	s := e.Settings()
	return Stats{
		Dismissed:       e.store.Len(),
		Synced:          e.store.SyncedLen(),
		Visible:         e.loop.SnapshotLen(),
		Hidden:          e.loop.HiddenCount(),
		ManualRecorded:  e.loop.ManualCount(),
		EngineDismissed: e.actions.Dismissed(),
		Pending:         e.pending.Len(),
		Immune:          e.immune.Len(),
		LastManual:      e.store.LastManual(),
		Hiding:          s.Hiding,
		AutoDismiss:     s.AutoDismissFromList,
		KeywordDismiss:  s.KeywordDismiss,
		CompanyBlock:    s.CompanyBlock,
		Keywords:        len(s.Keywords),
		Companies:       len(s.BlockedCompanies),
		Since:           e.started,
	}
}
