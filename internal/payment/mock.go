package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// MockGateway is the development processor. Sessions redirect straight to the
// success URL and callbacks are plain, unsigned JSON:
//
//	{"id": "evt_1", "session_id": "cs_mock_...", "outcome": "completed"}
//
// Callbacks must name the current session; there is no metadata fallback.
type MockGateway struct {
	// Fail makes CreateCheckout return an error, to exercise retries.
	Fail bool
}

func (g *MockGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Fail {
		return nil, fmt.Errorf("mock processor unavailable")
	}
	return &CheckoutSession{
		ID:  "cs_mock_" + uuid.NewString(),
		URL: req.SuccessURL,
	}, nil
}

type mockEvent struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"`
}

func (g *MockGateway) ParseEvent(payload []byte, _ http.Header) (*Event, error) {
	var m mockEvent
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, ErrInvalidSignature
	}
	ev := &Event{ID: m.ID, Type: "mock." + m.Outcome, CorrelationID: m.SessionID}
	switch m.Outcome {
	case OutcomeCompleted, OutcomeFailed:
		ev.Outcome = m.Outcome
	default:
		ev.Ignored = true
	}
	return ev, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

var _ Gateway = (*MockGateway)(nil)
