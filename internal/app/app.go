// Package app wires configuration, storage, queue and payment processor into
// the services shared by every binary.
package app

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/payment"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

type App struct {
	Config  *config.Config
	DB      *sql.DB
	Queue   queue.Queue
	Gateway payment.Gateway

	Campaigns *service.CampaignService
	Donations *service.DonationService
	Accounts  *service.AccountService
}

// New builds the services on top of an open database. q may be nil, in which
// case the configured queue driver is dialed.
func New(cfg *config.Config, conn *sql.DB, q queue.Queue) (*App, error) {
	if q == nil {
		var err error
		if q, err = NewQueue(cfg); err != nil {
			return nil, err
		}
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	donationRepo := &repository.DonationRepository{DB: conn, Campaigns: campaignRepo}
	userRepo := &repository.UserRepository{DB: conn}
	categoryRepo := &repository.CategoryRepository{DB: conn}
	gateway := NewGateway(cfg)

	return &App{
		Config:  cfg,
		DB:      conn,
		Queue:   q,
		Gateway: gateway,
		Campaigns: &service.CampaignService{
			CampaignRepo: campaignRepo,
			DonationRepo: donationRepo,
			CategoryRepo: categoryRepo,
			UserRepo:     userRepo,
		},
		Donations: &service.DonationService{
			CampaignRepo: campaignRepo,
			DonationRepo: donationRepo,
			Gateway:      gateway,
			Queue:        q,
			BaseURL:      cfg.BaseURL,
			Currency:     cfg.Currency,
			NameTemplate: cfg.CheckoutNameTemplate,
			Timeout:      cfg.PaymentTimeout,
		},
		Accounts: &service.AccountService{
			UserRepo:     userRepo,
			DonationRepo: donationRepo,
		},
	}, nil
}

// NewGateway returns the configured payment processor.
func NewGateway(cfg *config.Config) payment.Gateway {
	if cfg.PaymentProvider == config.ProviderStripe {
		log.Println("💳 Using Stripe checkout")
		return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.PaymentTimeout)
	}
	log.Println("🚨 PAYMENT_PROVIDER=mock: webhooks are NOT signature-verified, anyone can complete a donation. Never run this outside development.")
	return &payment.MockGateway{}
}

// NewQueue returns the configured queue driver.
func NewQueue(cfg *config.Config) (queue.Queue, error) {
	if cfg.QueueDriver == config.QueueAMQP {
		q, err := queue.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("failed to dial queue: %w", err)
		}
		log.Println("✅ Connected to RabbitMQ")
		return q, nil
	}
	return queue.NewInMemoryQueue(), nil
}

// StartInProcessWorker subscribes the donor totals worker to the in-memory
// queue. With a broker the standalone worker binary consumes instead.
func (a *App) StartInProcessWorker() bool {
	if _, ok := a.Queue.(*queue.InMemoryQueue); !ok {
		return false
	}
	worker := service.NewWorker(a.Accounts)
	queue.StartLedgerSubscriber(a.Queue, worker.Handle)
	return true
}

// Close releases the queue connection, if any, and the database.
func (a *App) Close() {
	if closer, ok := a.Queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Println("⚠️ failed to close queue:", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Println("⚠️ failed to close database:", err)
	}
}
