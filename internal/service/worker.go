package service

import (
	"context"
	"log"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// DonorTotals is what the worker needs to keep profile stats in sync
type DonorTotals interface {
	RefreshDonorTotals(ctx context.Context, donorID int) error
}

// Worker processes ledger events delivered by a queue subscriber
type Worker struct {
	Accounts DonorTotals
	Timeout  time.Duration
}

// Constructor
func NewWorker(accounts DonorTotals) *Worker {
	return &Worker{
		Accounts: accounts,
		Timeout:  10 * time.Second,
	}
}

// Handle processes a single ledger event. Events of anonymous or deleted donors
// have nothing to refresh.
func (w *Worker) Handle(ev model.LedgerEvent) error {
	if ev.DonorID == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	if err := w.Accounts.RefreshDonorTotals(ctx, *ev.DonorID); err != nil {
		return err
	}
	log.Printf("📊 total_donated refreshed for user %d after %s of donation %d\n", *ev.DonorID, ev.Type, ev.DonationID)
	return nil
}
