package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	confirmErr error
	publishErr error
	ack        bool

	confirms   chan amqp091.Confirmation
	exchange   string
	routingKey string
	published  []amqp091.Publishing
}

func (f *fakeChannel) Confirm(noWait bool) error { return f.confirmErr }

func (f *fakeChannel) NotifyPublish(c chan amqp091.Confirmation) chan amqp091.Confirmation {
	f.confirms = c
	return c
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.exchange = exchange
	f.routingKey = key
	f.published = append(f.published, msg)
	f.confirms <- amqp091.Confirmation{Ack: f.ack, DeliveryTag: uint64(len(f.published))}
	return nil
}

func TestAMQPNotifierPublishesConfirmedMessage(t *testing.T) {
	ch := &fakeChannel{ack: true}
	p, err := NewAMQPNotifier(ch, "receipts", "receipt.notification")
	require.NoError(t, err)

	err = p.ReceiptIssued(context.Background(), ReceiptNotification{
		ReceiptID:  "r-1",
		UserID:     "u-1",
		DeviceID:   "device-token",
		DeviceType: "ANDROID",
		Amount:     1250,
	})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, "receipts", ch.exchange)
	assert.Equal(t, "receipt.notification", ch.routingKey)
	assert.Equal(t, uint8(amqp091.Persistent), ch.published[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var msg pushMessage
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &msg))
	assert.Equal(t, "Transaction Receipt", msg.Title)
	assert.Contains(t, msg.Message, "1250")
	assert.Equal(t, "device-token", msg.DeviceID)
	assert.Equal(t, "r-1", msg.Data["receipt_id"])
}

func TestAMQPNotifierBrokerNack(t *testing.T) {
	ch := &fakeChannel{ack: false}
	p, err := NewAMQPNotifier(ch, "receipts", "receipt.notification")
	require.NoError(t, err)

	err = p.ReceiptIssued(context.Background(), ReceiptNotification{ReceiptID: "r-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestAMQPNotifierPublishFailure(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewAMQPNotifier(ch, "receipts", "receipt.notification")
	require.NoError(t, err)

	err = p.ReceiptIssued(context.Background(), ReceiptNotification{ReceiptID: "r-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestNewAMQPNotifierValidates(t *testing.T) {
	_, err := NewAMQPNotifier(&fakeChannel{}, "receipts", "")
	assert.Error(t, err)

	_, err = NewAMQPNotifier(&fakeChannel{confirmErr: errors.New("no confirms")}, "receipts", "k")
	assert.Error(t, err)
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, Nop{}.ReceiptIssued(context.Background(), ReceiptNotification{ReceiptID: "r-4"}))
}
