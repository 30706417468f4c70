package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"jobsieve/internal/config"
	pg "jobsieve/internal/infra/db/postgres"
)

// Seeds the schema and a starter blacklist into an empty database. The
// backfill worker picks up the keywords and enqueues their embeddings once
// the app runs.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	// Dev validation: the seeder only touches Postgres and must not
	// demand an AI key.
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	repo := pg.NewKeywordRepo(pool, pg.NewTxManager(pool))

	// If a blacklist already exists, do nothing.
	existing, err := repo.ListAll(ctx, nil)
	if err != nil {
		log.Fatalf("list keywords: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d keywords already present. No changes.\n", len(existing))
		for _, k := range existing {
			fmt.Printf("  - %s\n", k.Text)
		}
		return
	}

	seed := []string{
		"junior internship",
		"unpaid volunteer position",
		"crypto trading signals",
		"commission only sales",
	}
	created, err := repo.ReplaceAll(ctx, seed)
	if err != nil {
		log.Fatalf("seed keywords: %v", err)
	}
	fmt.Printf("Seeded %d blacklist keywords.\n", len(created))
}
