package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveryClosed reports that the broker closed the delivery channel while the
// consumer was still expected to run.
var ErrDeliveryClosed = errors.New("delivery channel closed")

type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	q    string
}

func NewConsumer(url, exchange, queue, key string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	qd, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(qd.Name, key, exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, q: qd.Name}, nil
}

func (c *Consumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Delivery is the part of an AMQP delivery a handler pool needs.
type Delivery interface {
	Body() []byte
	Ack() error
	Nack(requeue bool) error
}

type amqpDelivery struct{ d amqp.Delivery }

func (a amqpDelivery) Body() []byte            { return a.d.Body }
func (a amqpDelivery) Ack() error              { return a.d.Ack(false) }
func (a amqpDelivery) Nack(requeue bool) error { return a.d.Nack(false, requeue) }

func (c *Consumer) Consume(ctx context.Context, workers int, handle func(context.Context, []byte) error) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("consumer is not initialized")
	}

	// bounded prefetch keeps memory flat
	if err := c.ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.q, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	return serve(ctx, workers, msgs, handle)
}

// serve feeds msgs to the worker pool. It returns nil once ctx is done and
// ErrDeliveryClosed when msgs closes first.
func serve(ctx context.Context, workers int, msgs <-chan amqp.Delivery, handle func(context.Context, []byte) error) error {
	in := make(chan Delivery)
	go func() {
		defer close(in)
		for d := range msgs {
			select {
			case in <- amqpDelivery{d}:
			case <-ctx.Done():
				return
			}
		}
	}()
	RunWorkers(ctx, workers, in, handle)
	if ctx.Err() != nil {
		return nil
	}
	return ErrDeliveryClosed
}

// RunWorkers drains in with a fixed pool until ctx is done or in is closed.
// A handler error requeues the delivery.
func RunWorkers(ctx context.Context, workers int, in <-chan Delivery, handle func(context.Context, []byte) error) {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case d, ok := <-in:
					if !ok {
						return
					}
					if err := handle(ctx, d.Body()); err != nil {
						_ = d.Nack(true)
						continue
					}
					_ = d.Ack()
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}
