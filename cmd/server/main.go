// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	// Init DB
	db.Init(cfg)

	a, err := app.New(cfg, db.DB, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	if a.StartInProcessWorker() {
		log.Println("👷 Donor totals worker running in-process")
	} else {
		log.Println("👷 Ledger events go to", cfg.AMQPURL, "- run cmd/worker to consume them")
	}

	log.Println("🚀 Server running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, a.Router()))
}
