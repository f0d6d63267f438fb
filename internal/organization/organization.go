// Package organization owns the organization aggregate and the onboarding
// workflow that creates an organization together with its first staff user.
package organization

import (
	"context"
	"errors"
	"time"

	"receiptz.org/internal/country"
)

var ErrNotFound = errors.New("organization: not found")

// Organization is a top-level aggregate. TaxRate is the fraction applied to
// receipt amounts, e.g. 0.08 for 8%.
type Organization struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	StreetAddress string          `json:"street_address"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	Country       country.Country `json:"country"`
	TaxRate       float64         `json:"tax_rate"`
	ZipCode       string          `json:"zip_code"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Store describes persistence for organizations. Delete exists for the
// onboarding compensation path and removes the record outright.
type Store interface {
	Create(ctx context.Context, o *Organization) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	Delete(ctx context.Context, id string) error
}
