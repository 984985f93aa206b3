package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue is the publish/subscribe surface shared by the in-memory and AMQP
// transports.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
	Close() error
}

const DefaultMaxRetries = 3

// InMemoryQueue fans each message out to the topic's handlers on their own
// goroutine and retries failed handlers with linear backoff.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	closed   bool
	wg       sync.WaitGroup

	MaxRetries int
	Backoff    time.Duration
	logger     *zap.Logger
}

func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		MaxRetries: DefaultMaxRetries,
		Backoff:    500 * time.Millisecond,
		logger:     logger,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue closed")
	}
	handlers := q.handlers[topic]
	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{Topic: topic, Payload: payload, MaxRetries: q.MaxRetries}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}
	return nil
}

func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()
	for {
		err := handler(job.Payload)
		if err == nil {
			q.logger.Debug("job processed", zap.String("topic", job.Topic), zap.Int("attempt", job.RetryCount+1))
			return
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			q.logger.Error("job permanently failed",
				zap.String("topic", job.Topic), zap.Int("attempts", job.RetryCount), zap.Error(err))
			return
		}
		q.logger.Warn("job failed, retrying",
			zap.String("topic", job.Topic), zap.Int("attempt", job.RetryCount), zap.Error(err))
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close rejects further publishes and waits for in-flight jobs.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

// Decode turns a delivered payload into v. AMQP handlers receive raw JSON
// bytes while in-memory handlers receive the published value.
func Decode(payload any, v any) error {
	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
