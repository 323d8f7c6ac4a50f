// synccheck connects to the synchronized tier and reports what it holds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-jobcard-manager/internal/config"
	"go-jobcard-manager/internal/dismissal"
	"go-jobcard-manager/internal/settings"
	"go-jobcard-manager/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var area storage.Area
	if cfg.Storage.SyncBackend == config.BackendPostgres {
		fmt.Println("Attempting to connect to PostgreSQL...")
		pg, err := storage.ConnectPostgresArea(ctx, cfg.Storage.DatabaseURL, "sync")
		if err != nil {
			log.Fatalf("❌ Failed to connect to the database: %v\n(Check DATABASE_URL and that the database is reachable)", err)
		}
		defer pg.Close()
		area = pg
		fmt.Println("✅ Connected to the sync database")
	} else {
		fa, err := storage.NewFileArea(cfg.Storage.DataDir, "sync.json")
		if err != nil {
			log.Fatalf("❌ Failed to open %s: %v", cfg.Storage.DataDir, err)
		}
		area = fa
		fmt.Printf("📂 Sync tier file: %s\n", fa.Path())
	}

	report, err := dismissal.Inspect(ctx, area, dismissal.DefaultChunkPrefix)
	if err != nil {
		log.Fatalf("❌ Read failed: %v", err)
	}
	fmt.Printf("📦 %d chunk(s), %d dismissed id(s), largest chunk %d/%d bytes\n",
		report.Chunks, report.IDs, report.MaxBytes, cfg.Storage.ChunkBytes)
	if report.Corrupt > 0 {
		fmt.Printf("⚠️ %d corrupt chunk(s) will be skipped on load\n", report.Corrupt)
	}
	if report.IDs > cfg.Storage.Quota {
		fmt.Printf("⚠️ Over quota by %d id(s); the next flush evicts them\n", report.IDs-cfg.Storage.Quota)
	}

	s, err := settings.NewRepository(area).Load(ctx)
	if err != nil {
		log.Fatalf("❌ Settings read failed: %v", err)
	}
	fmt.Printf("⚙️ hiding=%t autoDismiss=%t keywordDismiss=%t companyBlock=%t keywords=%d companies=%d\n",
		s.Hiding, s.AutoDismissFromList, s.KeywordDismiss, s.CompanyBlock, len(s.Keywords), len(s.BlockedCompanies))
}
