package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobcard-manager/internal/client"
	"go-jobcard-manager/internal/engine"
	"go-jobcard-manager/internal/settings"
)

type fakeManager struct {
	current  settings.Settings
	commands []engine.Command
}

func (f *fakeManager) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.current)
	})
	mux.HandleFunc("/api/commands", func(w http.ResponseWriter, r *http.Request) {
		var cmd engine.Command
		json.NewDecoder(r.Body).Decode(&cmd)
		f.commands = append(f.commands, cmd)
		json.NewEncoder(w).Encode(engine.Response{Status: engine.StatusOK, Message: "done"})
	})
	return mux
}

func newFake(t *testing.T, s settings.Settings) (*fakeManager, *client.Client) {
	f := &fakeManager{current: s}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, client.New(srv.URL)
}

func TestAddKeywordSendsWholeList(t *testing.T) {
	f, c := newFake(t, settings.Settings{Keywords: []string{"senior"}})

	out, err := run(context.Background(), c, "addKeyword", []string{"Staff", "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	require.Len(t, f.commands, 1)
	assert.Equal(t, "updateKeywords", f.commands[0].Action)
	assert.Equal(t, []string{"senior", "staff engineer"}, f.commands[0].Keywords)
}

func TestAddDuplicateCompanyFails(t *testing.T) {
	f, c := newFake(t, settings.Settings{BlockedCompanies: []string{"acme"}})

	_, err := run(context.Background(), c, "addCompany", []string{"ACME"})
	assert.Error(t, err)
	assert.Empty(t, f.commands)
}

func TestRemoveMissingTermFails(t *testing.T) {
	_, c := newFake(t, settings.Settings{Keywords: []string{"senior"}})
	_, err := run(context.Background(), c, "removeKeyword", []string{"junior"})
	assert.Error(t, err)
}

func TestToggleNeedsOnOff(t *testing.T) {
	f, c := newFake(t, settings.Settings{})

	_, err := run(context.Background(), c, "toggleHiding", []string{"maybe"})
	assert.Error(t, err)

	_, err = run(context.Background(), c, "toggleHiding", []string{"off"})
	require.NoError(t, err)
	assert.Equal(t, engine.Command{Action: "toggleHiding", Enabled: false}, f.commands[0])
}

func TestExportAndUndo(t *testing.T) {
	f, c := newFake(t, settings.Settings{BlockedCompanies: []string{"acme", "globex"}})

	out, err := run(context.Background(), c, "export", []string{"companies"})
	require.NoError(t, err)
	assert.Equal(t, "acme\nglobex", out)

	_, err = run(context.Background(), c, "undoLast", []string{"4329358250"})
	require.NoError(t, err)
	assert.Equal(t, "4329358250", f.commands[0].ID)
}
