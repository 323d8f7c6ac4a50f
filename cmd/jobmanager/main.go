package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go-jobcard-manager/internal/action"
	"go-jobcard-manager/internal/browser"
	"go-jobcard-manager/internal/config"
	"go-jobcard-manager/internal/dismissal"
	"go-jobcard-manager/internal/engine"
	"go-jobcard-manager/internal/metrics"
	"go-jobcard-manager/internal/observe"
	"go-jobcard-manager/internal/scraper/linkedin"
	"go-jobcard-manager/internal/server"
	"go-jobcard-manager/internal/settings"
	"go-jobcard-manager/internal/storage"
	"go-jobcard-manager/internal/telegram"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	//load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("🔧 Config loaded. Keywords: %v, blocked companies: %v", cfg.Keywords, cfg.BlockedCompanies)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("🚀 Starting job card manager...")

	//storage tiers
	local, err := storage.NewFileArea(cfg.Storage.DataDir, "local.json")
	if err != nil {
		log.Fatalf("❌ Failed to open local storage: %v", err)
	}
	var remote storage.Area
	switch cfg.Storage.SyncBackend {
	case config.BackendPostgres:
		pg, err := storage.ConnectPostgresArea(ctx, cfg.Storage.DatabaseURL, "sync")
		if err != nil {
			log.Fatalf("❌ Failed to connect sync storage: %v", err)
		}
		defer pg.Close()
		pg.MaxItemBytes = cfg.Storage.ChunkBytes
		remote = pg
		log.Println("🗄️ Sync tier: postgres")
	default:
		fa, err := storage.NewFileArea(cfg.Storage.DataDir, "sync.json")
		if err != nil {
			log.Fatalf("❌ Failed to open sync storage: %v", err)
		}
		remote = fa
		log.Printf("🗄️ Sync tier: %s", fa.Path())
	}

	store := dismissal.NewStore(local, remote, dismissal.Options{
		ChunkBytes: cfg.Storage.ChunkBytes,
		Quota:      cfg.Storage.Quota,
	})
	defer store.Close()

	repo := settings.NewRepository(remote)
	if err := repo.Seed(ctx, settings.Settings{
		Hiding:           true,
		Keywords:         cfg.Keywords,
		BlockedCompanies: cfg.BlockedCompanies,
	}); err != nil {
		log.Printf("⚠️ Could not seed settings: %v", err)
	}

	//init playwright manager
	pwManager, err := browser.NewPlaywright(cfg.Headless)
	if err != nil {
		log.Fatalf("❌ Failed to init Playwright: %v", err)
	}
	defer pwManager.Close()

	cookies, err := browser.LoadCookies(cfg.CookiesPath)
	if err != nil {
		log.Printf("⚠️ Could not load cookies: %v. Continuing logged out.", err)
	} else {
		log.Printf("🍪 Loaded %d cookies", len(cookies))
	}
	browserCtx, err := pwManager.NewContext(cookies)
	if err != nil {
		log.Fatalf("❌ Failed to create browser context: %v", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		log.Fatalf("❌ Failed to create new page: %v", err)
	}

	shots, err := browser.NewScreenshotDebugger(filepath.Join(cfg.Storage.DataDir, "screenshots"))
	if err != nil {
		log.Printf("⚠️ Screenshots disabled: %v", err)
	}
	jobPage, err := linkedin.New(page, cfg.Selectors, shots)
	if err != nil {
		log.Fatalf("❌ Failed to instrument page: %v", err)
	}
	if err := jobPage.Open(ctx, cfg.PageURL); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Println("✅ Browser initialized successfully!")

	opts := engine.Options{
		Observe: observe.Options{
			Interval: cfg.Timing.ObserveInterval,
			Debounce: cfg.Timing.Debounce,
			Cooldown: cfg.Timing.Cooldown,
		},
		Action: action.Options{
			Interval:   cfg.Timing.ActionInterval,
			Ceiling:    cfg.Timing.ActionCeiling,
			MarkerHold: cfg.Timing.MarkerHold,
		},
		FlushInterval:    cfg.Timing.FlushInterval,
		NavigationSettle: cfg.Timing.NavigationSettle,
	}

	//init telegram bot
	var bot *telegram.Bot
	if cfg.NotificationsEnabled() {
		bot, err = telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("⚠️ Telegram disabled: %v", err)
		} else {
			opts.Notifier = bot
			log.Println("🤖 Telegram Bot initialized.")
		}
	}

	eng := engine.New(jobPage, store, repo, opts)
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("❌ Failed to start engine: %v", err)
	}
	if bot != nil {
		if err := bot.SendStatus("Job card manager started on " + cfg.PageURL); err != nil {
			log.Printf("⚠️ Telegram status failed: %v", err)
		}
	}

	go func() {
		err := config.Watch(ctx, *configPath, func(c *config.Config) {
			eng.Handle(ctx, engine.Command{Action: "updateKeywords", Keywords: c.Keywords})
			eng.Handle(ctx, engine.Command{Action: "updateCompanies", Companies: c.BlockedCompanies})
		})
		if err != nil {
			log.Printf("⚠️ Config watcher stopped: %v", err)
		}
	}()

	srv := server.New(eng)
	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		log.Printf("❌ %v", err)
		if bot != nil {
			if sendErr := bot.SendError(err); sendErr != nil {
				log.Printf("⚠️ Telegram error report failed: %v", sendErr)
			}
		}
		stop()
	}

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	eng.Shutdown(shutdownCtx)
	if bot != nil {
		if err := bot.SendStatus("Job card manager stopped"); err != nil {
			log.Printf("⚠️ Telegram status failed: %v", err)
		}
	}
}
