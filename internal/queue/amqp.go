package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryHeader = "x-retry-count"

// channel is the subset of *amqp.Channel the queue uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes JSON messages to a durable queue named after the topic
// on the default exchange. Failed deliveries are republished with an
// incremented x-retry-count header until MaxRetries is reached.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   channel

	mu       sync.Mutex
	declared map[string]bool
	wg       sync.WaitGroup

	MaxRetries int
	logger     *zap.Logger
}

func DialAMQP(url string, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q := newAMQPQueue(ch, logger)
	q.conn = conn
	return q, nil
}

func newAMQPQueue(ch channel, logger *zap.Logger) *AMQPQueue {
	return &AMQPQueue{
		ch:         ch,
		declared:   map[string]bool{},
		MaxRetries: DefaultMaxRetries,
		logger:     logger,
	}
}

func (q *AMQPQueue) declare(topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.declared[topic] {
		return nil
	}
	if _, err := q.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int32) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
		Headers:      amqp.Table{retryHeader: retries},
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Publish("", topic, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer goroutine. The handler receives the raw
// message body as []byte.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	q.mu.Lock()
	msgs, err := q.ch.Consume(topic, "", false, false, false, false, nil)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", topic, err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for d := range msgs {
			q.handleDelivery(topic, d, handler)
		}
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(topic string, d amqp.Delivery, handler func(payload any) error) {
	err := handler(d.Body)
	if err == nil {
		d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	if retries >= int32(q.MaxRetries) {
		q.logger.Error("message permanently failed",
			zap.String("topic", topic), zap.Int32("retries", retries), zap.Error(err))
		d.Ack(false)
		return
	}

	q.logger.Warn("message failed, requeueing",
		zap.String("topic", topic), zap.Int32("retries", retries+1), zap.Error(err))
	if perr := q.publish(topic, d.Body, retries+1); perr != nil {
		q.logger.Error("requeue failed", zap.String("topic", topic), zap.Error(perr))
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func retryCount(h amqp.Table) int32 {
	switch v := h[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

// Close closes the channel, which ends every consumer loop, then the
// connection.
func (q *AMQPQueue) Close() error {
	err := q.ch.Close()
	q.wg.Wait()
	if q.conn != nil {
		if cerr := q.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ Queue = (*AMQPQueue)(nil)
