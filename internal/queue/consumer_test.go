package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fakeDelivery struct {
	body []byte

	mu      sync.Mutex
	acked   bool
	requeue bool
}

func (d *fakeDelivery) Body() []byte { return d.body }

func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(requeue bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requeue = requeue
	return nil
}

func TestRunWorkers_AckOnSuccessNackOnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	good := &fakeDelivery{body: []byte("ok")}
	bad := &fakeDelivery{body: []byte("fail")}

	in := make(chan Delivery, 2)
	in <- good
	in <- bad
	close(in)

	RunWorkers(context.Background(), 3, in, func(_ context.Context, b []byte) error {
		if string(b) == "fail" {
			return errors.New("smtp down")
		}
		return nil
	})

	assert.True(t, good.acked)
	assert.False(t, good.requeue)
	assert.False(t, bad.acked)
	assert.True(t, bad.requeue)
}

func TestRunWorkers_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan Delivery)
	done := make(chan struct{})
	go func() {
		RunWorkers(ctx, 2, in, func(context.Context, []byte) error { return nil })
		close(done)
	}()
	cancel()
	<-done
}

func TestServe_BrokerCloseIsAnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Body: []byte("a")}
	msgs <- amqp.Delivery{Body: []byte("b")}
	close(msgs)

	var (
		mu   sync.Mutex
		seen []string
	)
	err := serve(context.Background(), 2, msgs, func(_ context.Context, b []byte) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(b))
		return nil
	})
	assert.ErrorIs(t, err, ErrDeliveryClosed)
	assert.ElementsMatch(t, []string{"a", "b"}, seen)
}

func TestServe_CancelIsClean(t *testing.T) {
	defer goleak.VerifyNone(t)

	msgs := make(chan amqp.Delivery)
	defer close(msgs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, serve(ctx, 2, msgs, func(context.Context, []byte) error { return nil }))
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoop()
	assert.NoError(t, p.Publish(context.Background(), AuthExchange, KeyUserRegistered, UserRegistered{}, "req-1"))
	assert.NoError(t, p.Close())
}
