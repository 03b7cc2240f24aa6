package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one message body.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, body []byte) error

// Consumer runs a reconnecting consume loop against one queue.
type Consumer struct {
	url      string
	queue    string
	args     amqp.Table
	prefetch int
	handle   Handler
	log      logrus.FieldLogger
}

// NewConsumer returns a consumer of a durable queue declared with args.
func NewConsumer(url, queue string, args amqp.Table, handle Handler, log logrus.FieldLogger) *Consumer {
	return &Consumer{
		url:      url,
		queue:    queue,
		args:     args,
		prefetch: 50,
		handle:   handle,
		log:      log.WithField("queue", queue),
	}
}

// NewBookingPaidConsumer consumes booking.paid events.
func NewBookingPaidConsumer(url string, handle Handler, log logrus.FieldLogger) *Consumer {
	return NewConsumer(url, BookingPaidQueue, nil, handle, log)
}

// NewPaymentCheckConsumer consumes payment checks released from the wait
// queue.  It declares the wait queue as well so that its dead-letter route
// exists before the first check is scheduled.
func NewPaymentCheckConsumer(url string, handle Handler, log logrus.FieldLogger) *Consumer {
	return NewConsumer(url, PaymentCheckQueue, nil, handle, log)
}

// Run dials the broker and consumes until ctx is cancelled.  Dial failures
// and dropped connections are retried with exponential backoff capped at
// 30 seconds.  Run returns nil once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if c.queue == PaymentCheckQueue {
		if _, err := ch.QueueDeclare(PaymentCheckWaitQueue, true, false, false, false, waitQueueArgs); err != nil {
			return fmt.Errorf("wait queue declare: %w", err)
		}
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, c.args); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
