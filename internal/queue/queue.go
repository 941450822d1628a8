package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// LedgerTopic carries donation.completed and donation.reversed events.
const LedgerTopic = "ledger_events"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process queue with retry
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error

	// Backoff is multiplied by the attempt number between retries.
	Backoff    time.Duration
	MaxRetries int
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		Backoff:    500 * time.Millisecond,
		MaxRetries: 3,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Topic:      topic,
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: q.MaxRetries,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("⚠️ %s job failed (attempt %d/%d): %+v, error: %v\n", job.Topic, job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("❌ %s job dropped after %d retries: %+v\n", job.Topic, job.MaxRetries, job.Payload)
			return // No requeue
		}

		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// DecodeLedgerEvent accepts an event published in-process or the JSON body
// delivered by a broker.
func DecodeLedgerEvent(payload any) (model.LedgerEvent, error) {
	var ev model.LedgerEvent
	switch p := payload.(type) {
	case model.LedgerEvent:
		return p, nil
	case *model.LedgerEvent:
		if p == nil {
			return ev, fmt.Errorf("nil ledger event")
		}
		return *p, nil
	case json.RawMessage:
		return ev, json.Unmarshal(p, &ev)
	case []byte:
		return ev, json.Unmarshal(p, &ev)
	default:
		return ev, fmt.Errorf("unexpected payload type %T", payload)
	}
}

// StartLedgerSubscriber feeds ledger events from q into handle.
func StartLedgerSubscriber(q Queue, handle func(model.LedgerEvent) error) {
	go func() {
		err := q.Subscribe(LedgerTopic, func(payload any) error {
			ev, err := DecodeLedgerEvent(payload)
			if err != nil {
				log.Println("⚠️ Invalid ledger event payload:", err)
				return nil // no retry
			}

			log.Printf("📩 Processing %s for donation %d\n", ev.Type, ev.DonationID)
			if err := handle(ev); err != nil {
				log.Println("⚠️ Failed to process ledger event:", err)
				return err // triggers retry in queue
			}
			return nil
		})

		if err != nil {
			log.Println("⚠️ Failed to start subscriber for", LedgerTopic+":", err)
		}
	}()
}
