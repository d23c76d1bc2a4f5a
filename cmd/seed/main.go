// Command seed applies the database schema (including the sentinel system
// user) and prints the configured package catalog. Safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"tg-trade-suite/internal/config"
	pg "tg-trade-suite/internal/infra/db/postgres"
)

const schemaPath = "deploy/postgres/init.sql"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.DatabaseURL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied.")

	catalog, err := config.LoadCatalog(cfg.PackagesFile)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	fmt.Printf("%d packages configured:\n", len(catalog.Packages))
	for _, p := range catalog.Packages {
		fmt.Printf("  - %s (%s): %d analyses, $%.2f\n", p.Name, p.ID, p.Analyses, float64(p.PriceCents)/100)
	}
}
