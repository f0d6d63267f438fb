// Package receipt owns the receipt aggregate and the creation workflow that
// stamps server-derived fields and dispatches the push notification.
package receipt

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("receipt: not found")

	// ErrNotPermitted covers both non-staff callers and staff reading outside
	// their organization.
	ErrNotPermitted = errors.New("receipt: caller is not permitted")

	ErrInvalidKind   = errors.New("receipt: kind must be purchase or return")
	ErrInvalidAmount = errors.New("receipt: amount must be positive")
)

// Kind distinguishes a sale from a refund.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindReturn   Kind = "return"
)

// LineItem is one position on a receipt. Price is in minor currency units.
type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// Receipt records one issued transaction. OrgID, StaffID and TaxRate are
// stamped by the service from the caller's credentials and the organization
// record, never taken from the request. BoundUserID is set when the customer
// could be resolved by mobile number.
type Receipt struct {
	ID           string     `json:"id"`
	OrgID        string     `json:"org_id"`
	StaffID      string     `json:"staff_id"`
	Amount       int64      `json:"amount"`
	TaxRate      float64    `json:"tax_rate"`
	Kind         Kind       `json:"kind"`
	BoundUserID  string     `json:"bound_user_id,omitempty"`
	MobileNumber string     `json:"mobile_number,omitempty"`
	LineItems    []LineItem `json:"line_items,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Store describes persistence for receipts.
type Store interface {
	Create(ctx context.Context, r *Receipt) error
	FindByID(ctx context.Context, id string) (*Receipt, error)
	ListByOrg(ctx context.Context, orgID string) ([]*Receipt, error)
	ListByUser(ctx context.Context, userID string) ([]*Receipt, error)
}
