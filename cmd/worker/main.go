package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// The worker consumes ledger events from RabbitMQ and keeps each donor's
// total_donated in sync with their completed donations.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	if cfg.QueueDriver != config.QueueAMQP {
		log.Fatal("the worker needs QUEUE_DRIVER=amqp; the in-memory queue is consumed by the server itself")
	}

	db.Init(cfg)

	a, err := app.New(cfg, db.DB, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	worker := service.NewWorker(a.Accounts)
	queue.StartLedgerSubscriber(a.Queue, worker.Handle)

	log.Println("Worker running, waiting for ledger events...")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Worker shutting down")
}
