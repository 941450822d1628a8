// Package ledger holds the pure rules that keep a campaign's amount_raised equal
// to the sum of its completed donations.
//
// Every donation status change is evaluated here before it is persisted. The
// rule is edge-triggered: only entering or leaving "completed" moves money, so
// re-applying the same status is always a no-op.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

var allowed = map[string]map[string]bool{
	model.DonationPending: {
		model.DonationCompleted: true,
		model.DonationCancelled: true,
		model.DonationRefunded:  true,
	},
	// A processor may confirm a payment after the session was reported failed.
	model.DonationCancelled: {
		model.DonationCompleted: true,
	},
	model.DonationCompleted: {
		model.DonationRefunded:  true,
		model.DonationCancelled: true,
	},
	model.DonationRefunded: {},
}

// CanTransition evaluates whether a donation may move from one status to another.
// Rules:
// - Both statuses must be known
// - Same status is allowed (idempotent no-op)
// - Nothing returns to pending, refunded is terminal
func CanTransition(from, to string) GuardResult {
	if !model.IsDonationStatus(from) {
		return GuardResult{Reason: fmt.Sprintf("unknown donation status %q", from)}
	}
	if !model.IsDonationStatus(to) {
		return GuardResult{Reason: fmt.Sprintf("unknown donation status %q", to)}
	}
	if from == to || allowed[from][to] {
		return GuardResult{Allowed: true}
	}
	return GuardResult{Reason: fmt.Sprintf("donation cannot move from %s to %s", from, to)}
}

// Delta is the change a transition applies to the campaign's amount_raised:
// +amount when entering completed, -amount when leaving it, zero otherwise.
func Delta(from, to string, amount decimal.Decimal) decimal.Decimal {
	switch {
	case to == model.DonationCompleted && from != model.DonationCompleted:
		return amount
	case from == model.DonationCompleted && to != model.DonationCompleted:
		return amount.Neg()
	}
	return decimal.Zero
}

// EventType names the ledger event for a non-zero delta.
func EventType(delta decimal.Decimal) string {
	if delta.IsNegative() {
		return model.EventDonationReversed
	}
	return model.EventDonationCompleted
}
