// Load envs from .env
// Load YAML config
// Apply env overrides
// Provide default values
// Validate config

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"

	DefaultPageURL = "https://www.linkedin.com/jobs/search/"
)

type Config struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`

	PageURL     string `yaml:"page_url"`
	Headless    bool   `yaml:"headless"`
	CookiesPath string `yaml:"cookies_path"`
	ListenAddr  string `yaml:"listen_addr"`

	Storage   Storage   `yaml:"storage"`
	Timing    Timing    `yaml:"timing"`
	Selectors Selectors `yaml:"selectors"`

	// Initial lists, also re-applied when the file changes
	Keywords         []string `yaml:"keywords"`
	BlockedCompanies []string `yaml:"blocked_companies"`
}

type Storage struct {
	DataDir     string `yaml:"data_dir"`
	SyncBackend string `yaml:"sync_backend"`
	DatabaseURL string `yaml:"database_url"`
	ChunkBytes  int    `yaml:"chunk_bytes"`
	Quota       int    `yaml:"quota"`
}

type Timing struct {
	ObserveInterval  time.Duration `yaml:"observe_interval"`
	Debounce         time.Duration `yaml:"debounce"`
	Cooldown         time.Duration `yaml:"cooldown"`
	ActionInterval   time.Duration `yaml:"action_interval"`
	ActionCeiling    time.Duration `yaml:"action_ceiling"`
	MarkerHold       time.Duration `yaml:"marker_hold"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
	NavigationSettle time.Duration `yaml:"navigation_settle"`
}

// Selectors are fallback chains: the first selector that matches wins.
type Selectors struct {
	Card            []string `yaml:"card"`
	IDAttribute     string   `yaml:"id_attribute"`
	Container       string   `yaml:"container"`
	Title           []string `yaml:"title"`
	Company         []string `yaml:"company"`
	DismissButton   []string `yaml:"dismiss_button"`
	UndoButton      []string `yaml:"undo_button"`
	DismissedMarker []string `yaml:"dismissed_marker"`
}

// DefaultSelectors match LinkedIn's job search list.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:        []string{".job-card-job-posting-card-wrapper[data-job-id]", ".job-card-container[data-job-id]", "[data-job-id]"},
		IDAttribute: "data-job-id",
		Container:   "li",
		Title: []string{
			".artdeco-entity-lockup__title",
			"h3 a",
			".job-card-list__title a",
			"[data-control-name=\"job_card_title_link\"]",
		},
		Company: []string{
			".artdeco-entity-lockup__subtitle div[dir=\"ltr\"]",
			".job-card-container__company-name",
			".job-card-list__company-name",
			"[data-control-name=\"company_name\"]",
			".artdeco-entity-lockup__subtitle",
			".job-card-container__primary-description",
		},
		DismissButton: []string{
			"button[aria-label*=\"Dismiss\"][aria-label*=\"job\"]",
			"button[aria-label*=\"Dismiss\"]",
			"button[data-control-name*=\"dismiss\"]",
		},
		UndoButton: []string{
			"button[aria-label*=\"Undo\"]",
			"button[data-control-name*=\"undo\"]",
		},
		DismissedMarker: []string{
			".job-card-job-posting-card-wrapper--dismissed",
			".job-card-list--is-dismissed",
		},
	}
}

// Load reads .env, then the YAML file at path (a missing file means
// defaults), then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.TelegramToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Storage.DatabaseURL = url
	}
	if addr := os.Getenv("JOBMANAGER_ADDR"); addr != "" {
		c.ListenAddr = addr
	}
	if headless := os.Getenv("JOBMANAGER_HEADLESS"); headless != "" {
		v, err := strconv.ParseBool(headless)
		if err != nil {
			return fmt.Errorf("invalid JOBMANAGER_HEADLESS: %w", err)
		}
		c.Headless = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.PageURL == "" {
		c.PageURL = DefaultPageURL
	}
	if c.CookiesPath == "" {
		c.CookiesPath = ".cookies/linkedin.json"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:8765"
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = ".data"
	}
	if c.Storage.SyncBackend == "" {
		c.Storage.SyncBackend = BackendFile
	}
	if c.Storage.ChunkBytes == 0 {
		c.Storage.ChunkBytes = 8192
	}
	if c.Storage.Quota == 0 {
		c.Storage.Quota = 8500
	}

	t := &c.Timing
	setDefault(&t.ObserveInterval, 300*time.Millisecond)
	setDefault(&t.Debounce, 250*time.Millisecond)
	setDefault(&t.Cooldown, 50*time.Millisecond)
	setDefault(&t.ActionInterval, time.Second)
	setDefault(&t.ActionCeiling, 10*time.Minute)
	setDefault(&t.MarkerHold, 500*time.Millisecond)
	setDefault(&t.FlushInterval, time.Second)
	setDefault(&t.NavigationSettle, time.Second)

	def := DefaultSelectors()
	s := &c.Selectors
	if len(s.Card) == 0 {
		s.Card = def.Card
	}
	if s.IDAttribute == "" {
		s.IDAttribute = def.IDAttribute
	}
	if s.Container == "" {
		s.Container = def.Container
	}
	if len(s.Title) == 0 {
		s.Title = def.Title
	}
	if len(s.Company) == 0 {
		s.Company = def.Company
	}
	if len(s.DismissButton) == 0 {
		s.DismissButton = def.DismissButton
	}
	if len(s.UndoButton) == 0 {
		s.UndoButton = def.UndoButton
	}
	if len(s.DismissedMarker) == 0 {
		s.DismissedMarker = def.DismissedMarker
	}
}

func setDefault(d *time.Duration, v time.Duration) {
	if *d == 0 {
		*d = v
	}
}

// Validate rejects configs the engine cannot run with.
func (c *Config) Validate() error {
	durations := map[string]time.Duration{
		"observe_interval":  c.Timing.ObserveInterval,
		"debounce":          c.Timing.Debounce,
		"cooldown":          c.Timing.Cooldown,
		"action_interval":   c.Timing.ActionInterval,
		"action_ceiling":    c.Timing.ActionCeiling,
		"marker_hold":       c.Timing.MarkerHold,
		"flush_interval":    c.Timing.FlushInterval,
		"navigation_settle": c.Timing.NavigationSettle,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("timing.%s must be positive, got %s", name, d)
		}
	}
	if c.Storage.ChunkBytes < 64 {
		return fmt.Errorf("storage.chunk_bytes too small: %d", c.Storage.ChunkBytes)
	}
	if c.Storage.Quota <= 0 {
		return fmt.Errorf("storage.quota must be positive, got %d", c.Storage.Quota)
	}
	switch c.Storage.SyncBackend {
	case BackendFile:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres sync backend")
		}
	default:
		return fmt.Errorf("unknown sync backend %q", c.Storage.SyncBackend)
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

// NotificationsEnabled reports whether Telegram is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramToken != ""
}
