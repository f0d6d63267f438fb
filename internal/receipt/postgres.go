package receipt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists receipts in the receipts table. Line items are
// stored as a JSONB document; they are read back whole, never queried.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const receiptColumns = `id, org_id, staff_id, amount, tax_rate, kind,
	bound_user_id, mobile_number, line_items, created_at`

func (s *PostgresStore) Create(ctx context.Context, r *Receipt) error {
	items, err := json.Marshal(r.LineItems)
	if err != nil {
		return fmt.Errorf("receipt: marshal line items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO receipts (`+receiptColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.OrgID, r.StaffID, r.Amount, r.TaxRate, string(r.Kind),
		r.BoundUserID, r.MobileNumber, items, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("receipt: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Receipt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id)
	r, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("receipt: select: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID string) ([]*Receipt, error) {
	return s.list(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE org_id = $1 ORDER BY created_at DESC, id`, orgID)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Receipt, error) {
	return s.list(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE bound_user_id = $1 ORDER BY created_at DESC, id`, userID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*Receipt, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("receipt: list: %w", err)
	}
	defer rows.Close()

	out := make([]*Receipt, 0)
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("receipt: list: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("receipt: list: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*Receipt, error) {
	var (
		r     Receipt
		kind  string
		items []byte
	)
	err := row.Scan(
		&r.ID, &r.OrgID, &r.StaffID, &r.Amount, &r.TaxRate, &kind,
		&r.BoundUserID, &r.MobileNumber, &items, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = Kind(kind)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &r.LineItems); err != nil {
			return nil, fmt.Errorf("unmarshal line items: %w", err)
		}
	}
	return &r, nil
}
