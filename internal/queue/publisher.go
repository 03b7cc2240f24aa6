package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// waitQueueArgs routes expired messages from the wait queue to the payment
// check queue through the default exchange.
var waitQueueArgs = amqp.Table{
	"x-dead-letter-exchange":    "",
	"x-dead-letter-routing-key": PaymentCheckQueue,
}

// Publisher sends events and delayed tasks to RabbitMQ.  The connection is
// dialed on first use and redialed after it breaks; each publish uses its
// own channel.  Messages are marked persistent.
type Publisher struct {
	url string
	log logrus.FieldLogger
	now func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewPublisher returns a publisher for the broker at url.  Nothing is
// dialed until the first publish.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// PublishBookingPaid publishes ev to the booking.paid queue.
func (p *Publisher) PublishBookingPaid(ctx context.Context, ev BookingPaidEvent) error {
	return p.publish(ctx, BookingPaidQueue, nil, ev, "")
}

// SchedulePaymentCheck enqueues a PaymentCheckTask that becomes visible to
// the payment check consumer after delay.
func (p *Publisher) SchedulePaymentCheck(ctx context.Context, bookingID uint64, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	task := PaymentCheckTask{BookingID: bookingID, ScheduledAt: p.now().Format(time.RFC3339)}
	return p.publish(ctx, PaymentCheckWaitQueue, waitQueueArgs, task, strconv.FormatInt(delay.Milliseconds(), 10))
}

func (p *Publisher) publish(ctx context.Context, queue string, args amqp.Table, payload any, expiration string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", queue, err)
	}
	ch, err := p.channel()
	if err != nil {
		p.log.WithError(err).WithField("queue", queue).Warn("rabbitmq: channel unavailable")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Expiration:   expiration,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		_ = p.conn.Close()
		p.conn = nil
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close closes the broker connection if one is open.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
