package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type event struct {
	PostID   string `json:"post_id"`
	Platform string `json:"platform"`
}

func TestInMemoryQueue_DeliversToEverySubscriber(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	var got int32
	for i := 0; i < 2; i++ {
		require.NoError(t, q.Subscribe("post.published", func(payload any) error {
			var e event
			if err := Decode(payload, &e); err != nil {
				return err
			}
			if e.PostID == "p1" {
				atomic.AddInt32(&got, 1)
			}
			return nil
		}))
	}

	require.NoError(t, q.Publish("post.published", event{PostID: "p1", Platform: "linkedin"}))
	require.NoError(t, q.Close())
	assert.Equal(t, int32(2), atomic.LoadInt32(&got))
}

func TestInMemoryQueue_RetriesUntilSuccess(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	q.Backoff = time.Millisecond
	var calls int32
	require.NoError(t, q.Subscribe("t", func(any) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("flaky")
		}
		return nil
	}))

	require.NoError(t, q.Publish("t", 1))
	require.NoError(t, q.Close())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInMemoryQueue_GivesUpAfterMaxRetries(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	q.Backoff = time.Millisecond
	q.MaxRetries = 2
	var calls int32
	require.NoError(t, q.Subscribe("t", func(any) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("down")
	}))

	require.NoError(t, q.Publish("t", 1))
	require.NoError(t, q.Close())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInMemoryQueue_PublishErrors(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	assert.Error(t, q.Publish("nobody", 1))

	require.NoError(t, q.Subscribe("t", func(any) error { return nil }))
	require.NoError(t, q.Close())
	assert.Error(t, q.Publish("t", 1))
}

func TestDecode(t *testing.T) {
	var e event
	require.NoError(t, Decode([]byte(`{"post_id":"p9","platform":"tiktok"}`), &e))
	assert.Equal(t, event{PostID: "p9", Platform: "tiktok"}, e)

	var e2 event
	require.NoError(t, Decode(e, &e2))
	assert.Equal(t, e, e2)

	assert.Error(t, Decode([]byte("{"), &e2))
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []amqp.Publishing
	deliveries chan amqp.Delivery
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	close(f.deliveries)
	return nil
}

type fakeAck struct {
	mu    sync.Mutex
	acks  int
	nacks int
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error { return nil }

func TestAMQPQueue_PublishDeclaresOnceAndEncodesJSON(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	q := newAMQPQueue(ch, zap.NewNop())

	require.NoError(t, q.Publish("post.published", event{PostID: "p1"}))
	require.NoError(t, q.Publish("post.published", event{PostID: "p2"}))

	assert.Equal(t, []string{"post.published"}, ch.declared)
	require.Len(t, ch.published, 2)
	assert.JSONEq(t, `{"post_id":"p1","platform":""}`, string(ch.published[0].Body))
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, int32(0), ch.published[0].Headers[retryHeader])
	require.NoError(t, q.Close())
}

func TestAMQPQueue_ConsumerAcksAndRequeues(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	q := newAMQPQueue(ch, zap.NewNop())
	ack := &fakeAck{}

	var handled int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		atomic.AddInt32(&handled, 1)
		var e event
		assert.NoError(t, Decode(payload, &e))
		if e.PostID == "bad" {
			return errors.New("boom")
		}
		return nil
	}))

	ch.deliveries <- amqp.Delivery{Acknowledger: ack, Body: []byte(`{"post_id":"ok"}`)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, Body: []byte(`{"post_id":"bad"}`), Headers: amqp.Table{retryHeader: int32(1)}}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, Body: []byte(`{"post_id":"bad"}`), Headers: amqp.Table{retryHeader: int32(3)}}
	require.NoError(t, q.Close())

	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
	assert.Equal(t, 3, ack.acks)
	assert.Equal(t, 0, ack.nacks)
	require.Len(t, ch.published, 1)
	assert.Equal(t, int32(2), ch.published[0].Headers[retryHeader])
}
