package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const confirmTimeout = 10 * time.Second

// Channel is the slice of amqp091.Channel the publisher needs; narrowed to
// an interface so tests can stand in for a live broker.
type Channel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp091.Confirmation) chan amqp091.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// pushMessage is the wire payload consumed by the notification worker. The
// field set mirrors what the mobile clients expect in the push body.
type pushMessage struct {
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Icon       string         `json:"icon"`
	Sound      string         `json:"sound"`
	DeviceID   string         `json:"device_id"`
	DeviceType string         `json:"device_type"`
	Data       map[string]any `json:"data"`
}

// AMQPNotifier publishes receipt notifications to a broker exchange with
// publisher confirms, so a dropped message surfaces as an error instead of
// disappearing.
type AMQPNotifier struct {
	mu         sync.Mutex
	ch         Channel
	confirms   chan amqp091.Confirmation
	exchange   string
	routingKey string
}

// NewAMQPNotifier switches the channel into confirm mode once and registers
// a single confirmation listener; publishes are serialized so each waits for
// its own ack.
func NewAMQPNotifier(ch Channel, exchange, routingKey string) (*AMQPNotifier, error) {
	if routingKey == "" {
		return nil, fmt.Errorf("notify: routing key is required")
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("notify: enable confirm mode: %w", err)
	}
	return &AMQPNotifier{
		ch:         ch,
		confirms:   ch.NotifyPublish(make(chan amqp091.Confirmation, 1)),
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

func (p *AMQPNotifier) ReceiptIssued(ctx context.Context, n ReceiptNotification) error {
	body, err := json.Marshal(pushMessage{
		Title:      "Transaction Receipt",
		Message:    fmt.Sprintf("Your transaction receipt for amount %d", n.Amount),
		Icon:       "receiptz-notification-icon.png",
		Sound:      "receiptznotification.wav",
		DeviceID:   n.DeviceID,
		DeviceType: n.DeviceType,
		Data:       map[string]any{"receipt_id": n.ReceiptID, "user_id": n.UserID},
	})
	if err != nil {
		return fmt.Errorf("notify: marshal notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("notify: publish notification: %w", err)
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return fmt.Errorf("notify: notification rejected by broker")
		}
	case <-ctx.Done():
		return fmt.Errorf("notify: waiting for confirmation: %w", ctx.Err())
	case <-time.After(confirmTimeout):
		return fmt.Errorf("notify: timeout waiting for confirmation")
	}
	return nil
}
