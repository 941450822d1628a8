package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AMQPQueue publishes JSON messages to durable RabbitMQ queues named after the topic.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

func DialAMQP(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, declared: map[string]bool{}}, nil
}

func (q *AMQPQueue) declare(topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Subscribe consumes topic with manual acks. The handler receives the raw
// JSON body; a failed message is requeued once and then dropped.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			if err := handler(json.RawMessage(d.Body)); err != nil {
				log.Printf("⚠️ Message %s failed (redelivered=%v): %v\n", d.MessageId, d.Redelivered, err)
				d.Nack(false, !d.Redelivered)
				continue
			}
			d.Ack(false)
		}
		log.Println("🔌 Consumer for", topic, "stopped")
	}()
	return nil
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
