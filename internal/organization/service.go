package organization

import (
	"context"
	"errors"
	"strings"
	"time"

	"receiptz.org/internal/audit"
	"receiptz.org/internal/auth"
	"receiptz.org/internal/country"
	"receiptz.org/internal/ids"
	"receiptz.org/internal/obs"
	"receiptz.org/internal/saga"
	"receiptz.org/internal/user"
)

// UserRegistrar is the slice of the user service onboarding needs.
type UserRegistrar interface {
	Register(ctx context.Context, p user.RegisterParams) (*user.User, error)
}

// Service implements organization onboarding and lookup.
type Service struct {
	store Store
	users UserRegistrar
	now   func() time.Time
}

func NewService(store Store, users UserRegistrar) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// OnboardParams describes a new organization and its first staff user. The
// admin account is created with the staff role bound to the new organization.
type OnboardParams struct {
	Name          string
	StreetAddress string
	City          string
	State         string
	CountryName   string
	TaxRate       float64
	ZipCode       string

	AdminFirstName    string
	AdminLastName     string
	AdminEmail        string
	AdminPassword     string
	AdminMobileNumber string
}

// Onboard creates the organization and registers its administrator as one
// workflow. The two writes cannot share a transaction, so a failed admin
// registration rolls the organization back by deleting it; a failed rollback
// is reported to the operator rather than swallowed.
func (s *Service) Onboard(ctx context.Context, p OnboardParams) (*Organization, *user.User, error) {
	c, err := country.Validate(p.CountryName)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	org := &Organization{
		ID:            ids.New(),
		Name:          strings.TrimSpace(p.Name),
		StreetAddress: strings.TrimSpace(p.StreetAddress),
		City:          strings.TrimSpace(p.City),
		State:         strings.TrimSpace(p.State),
		Country:       c,
		TaxRate:       p.TaxRate,
		ZipCode:       strings.TrimSpace(p.ZipCode),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var admin *user.User
	err = saga.Execute(ctx, []saga.Step{
		{
			Name: "create organization",
			Run: func(ctx context.Context) error {
				return s.store.Create(ctx, org)
			},
			Compensate: func(ctx context.Context) error {
				return s.store.Delete(ctx, org.ID)
			},
		},
		{
			Name: "register administrator",
			Run: func(ctx context.Context) error {
				a, err := s.users.Register(ctx, user.RegisterParams{
					FirstName:    p.AdminFirstName,
					LastName:     p.AdminLastName,
					Email:        p.AdminEmail,
					Password:     p.AdminPassword,
					MobileNumber: p.AdminMobileNumber,
					CountryName:  p.CountryName,
					Role:         auth.RoleStaff,
					OrgID:        org.ID,
				})
				if err != nil {
					return err
				}
				admin = a
				return nil
			},
		},
	})
	if err != nil {
		var cerr *saga.CompensationError
		if errors.As(err, &cerr) {
			obs.OnboardingCompensations.Inc()
			if len(cerr.Failed) > 0 {
				audit.LogEvent(ctx, "organization.onboarding_compensation_failed", map[string]any{
					"org_id": org.ID,
					"step":   cerr.Step,
					"errors": len(cerr.Failed),
				})
			}
		}
		return nil, nil, err
	}

	audit.LogEvent(ctx, "organization.onboarded", map[string]any{
		"org_id":   org.ID,
		"admin_id": admin.ID,
	})
	return org, admin, nil
}

// Get returns one organization by id.
func (s *Service) Get(ctx context.Context, id string) (*Organization, error) {
	return s.store.FindByID(ctx, id)
}
