package passwordreset

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/hrconnect-auth/pkg/account"
)

// PostgresRepository implements Repository on password_reset_pins and password_history.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreatePin(ctx context.Context, accountID int64, email, pin string, expiresAt time.Time) (ResetPin, error) {
	query := `
		INSERT INTO password_reset_pins (account_id, email, pin, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, email, pin, expires_at, used, created_at
	`

	var p ResetPin
	err := r.db.QueryRow(ctx, query, accountID, strings.ToLower(email), pin, expiresAt.UTC()).Scan(
		&p.ID,
		&p.AccountID,
		&p.Email,
		&p.Pin,
		&p.ExpiresAt,
		&p.Used,
		&p.CreatedAt,
	)
	if err != nil {
		return ResetPin{}, err
	}
	return p, nil
}

func (r *PostgresRepository) FindValidPin(ctx context.Context, email, pin string, now time.Time) (ResetPin, error) {
	query := `
		SELECT id, account_id, email, pin, expires_at, used, created_at
		FROM password_reset_pins
		WHERE lower(email) = lower($1)
		AND pin = $2
		AND used = FALSE
		AND expires_at > $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var p ResetPin
	err := r.db.QueryRow(ctx, query, email, pin, now.UTC()).Scan(
		&p.ID,
		&p.AccountID,
		&p.Email,
		&p.Pin,
		&p.ExpiresAt,
		&p.Used,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResetPin{}, ErrPinNotFound
		}
		return ResetPin{}, err
	}
	return p, nil
}

func (r *PostgresRepository) MarkPinUsed(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE password_reset_pins SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPinNotFound
	}
	return nil
}

func (r *PostgresRepository) CompleteReset(ctx context.Context, change PasswordChange) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	// Ignored once committed.
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE password_reset_pins SET used = TRUE WHERE id = $1 AND used = FALSE`, change.PinID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPinNotFound
	}

	tag, err = tx.Exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, change.AccountID, change.NewHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return account.ErrAccountNotFound
	}

	_, err = tx.Exec(ctx, `INSERT INTO password_history (account_id, password_hash) VALUES ($1, $2)`, change.AccountID, change.OldHash)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) DeleteExpiredPins(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_pins WHERE expires_at <= $1 AND used = FALSE`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) AddPasswordHistory(ctx context.Context, accountID int64, passwordHash string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO password_history (account_id, password_hash) VALUES ($1, $2)`, accountID, passwordHash)
	return err
}

func (r *PostgresRepository) ListPasswordHistory(ctx context.Context, accountID int64) ([]HistoryEntry, error) {
	query := `
		SELECT id, account_id, password_hash, changed_at
		FROM password_history
		WHERE account_id = $1
		ORDER BY changed_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.AccountID, &h.PasswordHash, &h.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
