// Command check-expired-plans runs the plan expiry sweep once and exits.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/farellandr/homerental/config"
	"github.com/farellandr/homerental/internal/services"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	ctx := context.Background()
	svc := services.New(services.Deps{
		DB:    db,
		Cache: config.InitListingCache(ctx, cfg),
	})
	swept, err := svc.Sweeper.Sweep(ctx)
	if err != nil {
		log.Fatalf("expiry sweep failed: %v", err)
	}
	log.Printf("%d expired listings returned to pending approval", swept)
}
