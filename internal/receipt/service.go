package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"receiptz.org/internal/audit"
	"receiptz.org/internal/auth"
	"receiptz.org/internal/ids"
	"receiptz.org/internal/notify"
	"receiptz.org/internal/obs"
	"receiptz.org/internal/organization"
	"receiptz.org/internal/user"
)

// OrgDirectory resolves the issuing organization.
type OrgDirectory interface {
	Get(ctx context.Context, id string) (*organization.Organization, error)
}

// UserDirectory resolves the customer a receipt should be bound to and the
// staff member who issued it.
type UserDirectory interface {
	FindByMobileNumber(ctx context.Context, number string) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// Service implements receipt creation and scoped reads.
type Service struct {
	store    Store
	orgs     OrgDirectory
	users    UserDirectory
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(store Store, orgs OrgDirectory, users UserDirectory, notifier notify.Notifier) *Service {
	return &Service{store: store, orgs: orgs, users: users, notifier: notifier, now: time.Now}
}

// CreateParams carries the caller-supplied receipt fields. Everything else on
// the record is derived server-side.
type CreateParams struct {
	Amount       int64
	Kind         Kind
	MobileNumber string
	LineItems    []LineItem
}

// View is a receipt expanded with its issuing organization and staff member
// for read APIs.
type View struct {
	Receipt
	Organization *organization.Organization `json:"organization,omitempty"`
	Staff        *user.Profile              `json:"staff,omitempty"`
}

// Create issues a receipt on behalf of the caller's organization. The org id,
// staff id and tax rate come from the credentials and the organization record.
// A customer mobile number binds the receipt to that user when one exists; an
// unknown number still produces a receipt, just unbound. The push notification
// is best-effort: its failure is recorded, never propagated.
func (s *Service) Create(ctx context.Context, ac auth.Context, p CreateParams) (*Receipt, error) {
	if !ac.IsStaff() {
		return nil, ErrNotPermitted
	}
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if p.Kind != KindPurchase && p.Kind != KindReturn {
		return nil, ErrInvalidKind
	}

	org, err := s.orgs.Get(ctx, ac.OrgID)
	if err != nil {
		// The credentials claim staff of this org, so a missing record is a
		// broken system state, not a client mistake.
		return nil, fmt.Errorf("receipt: issuing organization %s: %w", ac.OrgID, err)
	}

	var bound *user.User
	number := strings.TrimSpace(p.MobileNumber)
	if number != "" {
		bound, err = s.users.FindByMobileNumber(ctx, number)
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
	}

	r := &Receipt{
		ID:           ids.New(),
		OrgID:        org.ID,
		StaffID:      ac.UserID,
		Amount:       p.Amount,
		TaxRate:      org.TaxRate,
		Kind:         p.Kind,
		MobileNumber: number,
		LineItems:    p.LineItems,
		CreatedAt:    s.now().UTC(),
	}
	if bound != nil {
		r.BoundUserID = bound.ID
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	obs.ReceiptsCreated.Inc()
	audit.LogEvent(ctx, "receipt.created", map[string]any{
		"receipt_id": r.ID,
		"org_id":     r.OrgID,
		"amount":     r.Amount,
		"bound":      r.BoundUserID != "",
	})

	s.notifyBound(ctx, r, bound)
	return r, nil
}

func (s *Service) notifyBound(ctx context.Context, r *Receipt, bound *user.User) {
	if bound == nil || bound.DeviceID == "" {
		return
	}
	err := s.notifier.ReceiptIssued(ctx, notify.ReceiptNotification{
		ReceiptID:  r.ID,
		UserID:     bound.ID,
		DeviceID:   bound.DeviceID,
		DeviceType: bound.DeviceType,
		Amount:     r.Amount,
	})
	if err != nil {
		obs.NotificationsFailed.Inc()
		audit.LogEvent(ctx, "receipt.notification_failed", map[string]any{
			"receipt_id": r.ID,
			"user_id":    bound.ID,
			"error":      err.Error(),
		})
		return
	}
	obs.NotificationsSent.Inc()
}

// ListByOrganization returns the receipts issued by the caller's org.
func (s *Service) ListByOrganization(ctx context.Context, ac auth.Context) ([]*Receipt, error) {
	if !ac.IsStaff() {
		return nil, ErrNotPermitted
	}
	return s.store.ListByOrg(ctx, ac.OrgID)
}

// ListByUser returns the receipts bound to the caller, each expanded with its
// issuing organization.
func (s *Service) ListByUser(ctx context.Context, ac auth.Context) ([]*View, error) {
	receipts, err := s.store.ListByUser(ctx, ac.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]*View, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, s.expand(ctx, r))
	}
	return out, nil
}

// Get returns one receipt if the caller may see it: the bound user, or staff
// of the issuing organization. Anything else reads as not found.
func (s *Service) Get(ctx context.Context, ac auth.Context, id string) (*View, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.BoundUserID != ac.UserID && !(ac.IsStaff() && ac.OrgID == r.OrgID) {
		return nil, ErrNotFound
	}
	return s.expand(ctx, r), nil
}

// expand attaches the issuing organization and staff member; a lookup failure
// degrades to the bare receipt rather than failing the read.
func (s *Service) expand(ctx context.Context, r *Receipt) *View {
	v := &View{Receipt: *r}
	if org, err := s.orgs.Get(ctx, r.OrgID); err == nil {
		v.Organization = org
	}
	if staff, err := s.users.FindByID(ctx, r.StaffID); err == nil {
		p := staff.Profile()
		v.Staff = &p
	}
	return v
}
