package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"receiptz.org/internal/auth"
	"receiptz.org/internal/country"
)

const uniqueViolation = "23505"

// PostgresStore persists users in the users table. Single-use tokens live on
// the user row; consumption is a single conditional UPDATE so the row version
// the consumer saw is the one it clears.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, org_id,
	mobile_number, country_name, country_code, country_calling_code,
	device_id, device_type, verified,
	reset_token, reset_token_expires_at, verify_token, verify_token_expires_at,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,lower($4),$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), u.OrgID,
		u.MobileNumber, u.Country.Name, u.Country.Code, u.Country.CallingCode,
		u.DeviceID, u.DeviceType, u.Verified,
		u.ResetToken.Token, nullTime(u.ResetToken.ExpiresAt),
		u.VerifyToken.Token, nullTime(u.VerifyToken.ExpiresAt),
		u.CreatedAt, u.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("user: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
}

func (s *PostgresStore) FindByMobileNumber(ctx context.Context, number string) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE mobile_number = $1 AND mobile_number <> ''`, number)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user: select: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateOne(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id, firstName, lastName string) error {
	return s.updateOne(ctx, `UPDATE users SET first_name = $2, last_name = $3, updated_at = now() WHERE id = $1`, id, firstName, lastName)
}

func (s *PostgresStore) UpdateDevice(ctx context.Context, id, deviceID, deviceType string) error {
	return s.updateOne(ctx, `UPDATE users SET device_id = $2, device_type = $3, updated_at = now() WHERE id = $1`, id, deviceID, deviceType)
}

func (s *PostgresStore) SetSingleUseToken(ctx context.Context, id string, purpose Purpose, token SingleUseToken) error {
	tokenCol, expiryCol, err := tokenColumns(purpose)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE users SET %s = $2, %s = $3, updated_at = now() WHERE id = $1`, tokenCol, expiryCol)
	return s.updateOne(ctx, query, id, token.Token, token.ExpiresAt)
}

// ConsumeSingleUseToken clears the token only if the row still holds it and
// it has not expired, in one statement. The follow-up select exists solely to
// tell an unknown token apart from an expired one; by then a racing consumer
// has already cleared the winner's row, so the loser reports ErrTokenInvalid.
func (s *PostgresStore) ConsumeSingleUseToken(ctx context.Context, token string, purpose Purpose, now time.Time) (string, error) {
	if token == "" {
		return "", ErrTokenInvalid
	}
	tokenCol, expiryCol, err := tokenColumns(purpose)
	if err != nil {
		return "", err
	}
	verified := ""
	if purpose == PurposeAccountVerification {
		verified = ", verified = TRUE"
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %s = '', %s = NULL, updated_at = $2 %s
		WHERE %s = $1 AND %s > $2
		RETURNING id`, tokenCol, expiryCol, verified, tokenCol, expiryCol)

	var id string
	err = s.db.QueryRowContext(ctx, query, token, now).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user: consume token: %w", err)
	}

	var expiresAt sql.NullTime
	check := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, expiryCol, tokenCol)
	err = s.db.QueryRowContext(ctx, check, token).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("user: consume token: %w", err)
	}
	return "", ErrTokenExpired
}

func (s *PostgresStore) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("user: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user: update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func tokenColumns(purpose Purpose) (tokenCol, expiryCol string, err error) {
	switch purpose {
	case PurposePasswordReset:
		return "reset_token", "reset_token_expires_at", nil
	case PurposeAccountVerification:
		return "verify_token", "verify_token_expires_at", nil
	default:
		return "", "", fmt.Errorf("user: unknown token purpose %q", purpose)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u            User
		role         string
		c            country.Country
		resetExpiry  sql.NullTime
		verifyExpiry sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &role, &u.OrgID,
		&u.MobileNumber, &c.Name, &c.Code, &c.CallingCode,
		&u.DeviceID, &u.DeviceType, &u.Verified,
		&u.ResetToken.Token, &resetExpiry, &u.VerifyToken.Token, &verifyExpiry,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	u.Country = c
	if resetExpiry.Valid {
		u.ResetToken.ExpiresAt = resetExpiry.Time
	}
	if verifyExpiry.Valid {
		u.VerifyToken.ExpiresAt = verifyExpiry.Time
	}
	return &u, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
