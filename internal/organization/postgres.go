package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"receiptz.org/internal/country"
)

// PostgresStore persists organizations in the organizations table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orgColumns = `id, name, street_address, city, state,
	country_name, country_code, country_calling_code,
	tax_rate, zip_code, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, o *Organization) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (`+orgColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.Name, o.StreetAddress, o.City, o.State,
		o.Country.Name, o.Country.Code, o.Country.CallingCode,
		o.TaxRate, o.ZipCode, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("organization: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)

	var (
		o Organization
		c country.Country
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.StreetAddress, &o.City, &o.State,
		&c.Name, &c.Code, &c.CallingCode,
		&o.TaxRate, &o.ZipCode, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization: select: %w", err)
	}
	o.Country = c
	return &o, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("organization: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("organization: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
