//cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/seed"
)

func main() {
	path := flag.String("file", "seed/fixtures.yaml", "YAML fixtures to load")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	db.Init(cfg)

	// Seeding never moves money, so ledger events have nowhere to go.
	a, err := app.New(cfg, db.DB, queue.NewInMemoryQueue())
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	fixtures, err := seed.Load(*path)
	if err != nil {
		log.Fatal(err)
	}
	sum, err := seed.Apply(context.Background(), a, fixtures)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Seeded: %d categories, %d users, %d campaigns\n", sum.Categories, sum.Users, sum.Campaigns)
	fmt.Println("Database seeding completed successfully!")
}
