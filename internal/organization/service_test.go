package organization

import (
	"context"
	"errors"
	"testing"
	"time"

	"receiptz.org/internal/auth"
	"receiptz.org/internal/mail"
	"receiptz.org/internal/saga"
	"receiptz.org/internal/user"
)

func newTestServices(t *testing.T) (*Service, *MemoryStore, *user.MemoryStore) {
	t.Helper()
	codec, err := auth.NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	users := user.NewMemoryStore()
	userSvc := user.NewService(users, codec, mail.LogMailer{})
	orgs := NewMemoryStore()
	return NewService(orgs, userSvc), orgs, users
}

func onboardParams() OnboardParams {
	return OnboardParams{
		Name:          "Acme Retail",
		StreetAddress: "1 Main St",
		City:          "Springfield",
		State:         "IL",
		CountryName:   "United States",
		TaxRate:       0.08,
		ZipCode:       "62701",

		AdminFirstName: "Grace",
		AdminLastName:  "Hopper",
		AdminEmail:     "grace@acme.example",
		AdminPassword:  "adm1n-pass",
	}
}

func TestOnboardCreatesOrgAndAdmin(t *testing.T) {
	svc, orgs, users := newTestServices(t)

	org, admin, err := svc.Onboard(context.Background(), onboardParams())
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if org.TaxRate != 0.08 || org.Country.Code != "US" {
		t.Fatalf("org fields: %+v", org)
	}
	if admin.Role != auth.RoleStaff || admin.OrgID != org.ID {
		t.Fatalf("admin must be staff of the new org: %+v", admin)
	}

	if _, err := orgs.FindByID(context.Background(), org.ID); err != nil {
		t.Fatalf("org not persisted: %v", err)
	}
	if _, err := users.FindByEmail(context.Background(), "grace@acme.example"); err != nil {
		t.Fatalf("admin not persisted: %v", err)
	}
}

func TestOnboardRollsBackOrgOnDuplicateAdmin(t *testing.T) {
	svc, orgs, _ := newTestServices(t)

	if _, _, err := svc.Onboard(context.Background(), onboardParams()); err != nil {
		t.Fatalf("first Onboard: %v", err)
	}

	p := onboardParams()
	p.Name = "Acme Retail Two"
	_, _, err := svc.Onboard(context.Background(), p)
	if !errors.Is(err, user.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}

	// The second organization must not survive its failed admin.
	if n := len(orgIDs(orgs)); n != 1 {
		t.Fatalf("want exactly one surviving organization, got %d", n)
	}
}

func orgIDs(s *MemoryStore) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.orgs))
	for id := range s.orgs {
		out[id] = struct{}{}
	}
	return out
}

func TestOnboardUnknownCountryWritesNothing(t *testing.T) {
	svc, orgs, users := newTestServices(t)

	p := onboardParams()
	p.CountryName = "atlantis"
	if _, _, err := svc.Onboard(context.Background(), p); err == nil {
		t.Fatal("want country validation error")
	}
	if len(orgIDs(orgs)) != 0 {
		t.Fatal("no organization may be written")
	}
	if _, err := users.FindByEmail(context.Background(), p.AdminEmail); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("no user may be written, got %v", err)
	}
}

type brokenDeleteStore struct {
	*MemoryStore
	deleteErr error
}

func (s *brokenDeleteStore) Delete(ctx context.Context, id string) error {
	return s.deleteErr
}

func TestOnboardSurfacesCompensationFailure(t *testing.T) {
	codec, err := auth.NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	users := user.NewMemoryStore()
	userSvc := user.NewService(users, codec, mail.LogMailer{})
	orgs := &brokenDeleteStore{MemoryStore: NewMemoryStore(), deleteErr: errors.New("store unavailable")}
	svc := NewService(orgs, userSvc)

	// Occupy the admin email so the second saga step fails.
	if _, err := userSvc.Register(context.Background(), user.RegisterParams{
		FirstName: "Grace", LastName: "Hopper",
		Email: "grace@acme.example", Password: "adm1n-pass",
		CountryName: "United States", Role: auth.RoleIndividual,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	_, _, err = svc.Onboard(context.Background(), onboardParams())
	if !errors.Is(err, user.ErrDuplicateEmail) {
		t.Fatalf("original cause must stay visible, got %v", err)
	}
	var cerr *saga.CompensationError
	if !errors.As(err, &cerr) {
		t.Fatalf("want CompensationError, got %T", err)
	}
	if len(cerr.Failed) != 1 {
		t.Fatalf("compensation failure must be reported, got %v", cerr.Failed)
	}
}

func TestGet(t *testing.T) {
	svc, orgs, _ := newTestServices(t)
	now := time.Now().UTC()
	org := &Organization{ID: "org-1", Name: "Acme", CreatedAt: now, UpdatedAt: now}
	if err := orgs.Create(context.Background(), org); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(context.Background(), "org-1")
	if err != nil || got.Name != "Acme" {
		t.Fatalf("Get: %+v, %v", got, err)
	}
	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
