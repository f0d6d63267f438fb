// Package notify dispatches push notifications for issued receipts. Delivery
// is handed to a message broker; a downstream worker owns the actual
// APN/FCM conversation.
package notify

import (
	"context"

	"receiptz.org/internal/obs"
)

// ReceiptNotification describes one push to a bound user's device.
type ReceiptNotification struct {
	ReceiptID  string `json:"receipt_id"`
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	Amount     int64  `json:"amount"`
}

// Notifier dispatches receipt notifications. Implementations must be safe
// for concurrent use.
type Notifier interface {
	ReceiptIssued(ctx context.Context, n ReceiptNotification) error
}

// Nop logs the notification and reports success. Used where no broker is
// configured.
type Nop struct{}

func (Nop) ReceiptIssued(ctx context.Context, n ReceiptNotification) error {
	obs.LogLine("info", "push notification suppressed (no broker configured)", map[string]any{
		"receipt_id": n.ReceiptID,
		"user_id":    n.UserID,
	})
	return nil
}
