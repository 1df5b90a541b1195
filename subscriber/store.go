package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/chatforge/chatforge/core/logger"
)

// ErrNotFound is returned when a subscriber record does not exist.
var ErrNotFound = errors.New("subscriber: not found")

// Store persists per-tenant subscriber records.
type Store struct {
	db *sqlx.DB
}

// NewStore wires a subscriber store over the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Profile carries the identity fields seen on an inbound update.
type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Language   string
}

// Upsert registers a subscriber on first contact and refreshes the profile
// and last-seen timestamp on every subsequent update. A previously
// deactivated subscriber is reactivated.
func (s *Store) Upsert(ctx context.Context, tenantID int64, p Profile) (*Subscriber, error) {
	var sub Subscriber
	err := s.db.GetContext(ctx, &sub, `
		INSERT INTO subscribers (tenant_id, telegram_id, username, first_name, last_name, language, is_active, created_at, updated_at, last_seen_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), TRUE, NOW(), NOW(), NOW())
		ON CONFLICT (tenant_id, telegram_id) DO UPDATE SET
			username = COALESCE(NULLIF(EXCLUDED.username, ''), subscribers.username),
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), subscribers.first_name),
			last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), subscribers.last_name),
			language = COALESCE(NULLIF(EXCLUDED.language, ''), subscribers.language),
			is_active = TRUE,
			updated_at = NOW(),
			last_seen_at = NOW()
		RETURNING *`,
		tenantID, p.TelegramID, p.Username, p.FirstName, p.LastName, p.Language)
	if err != nil {
		return nil, fmt.Errorf("subscriber upsert: %w", err)
	}

	if sub.CreatedAt.Equal(sub.UpdatedAt) {
		logger.SVCSubs.Info("subscriber registered",
			slog.String("event", "subscriber.create"),
			slog.Int64("tenant_id", tenantID),
			slog.Int64("subscriber_id", sub.ID),
		)
	}
	return &sub, nil
}

// ByTelegramID fetches one subscriber of a tenant.
func (s *Store) ByTelegramID(ctx context.Context, tenantID, telegramID int64) (*Subscriber, error) {
	var sub Subscriber
	err := s.db.GetContext(ctx, &sub,
		`SELECT * FROM subscribers WHERE tenant_id = $1 AND telegram_id = $2`,
		tenantID, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("subscriber get: %w", err)
	}
	return &sub, nil
}

// Deactivate marks a subscriber inactive, for example on a blocked-bot signal.
func (s *Store) Deactivate(ctx context.Context, tenantID, telegramID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET is_active = FALSE, updated_at = NOW()
		 WHERE tenant_id = $1 AND telegram_id = $2`, tenantID, telegramID)
	if err != nil {
		return fmt.Errorf("subscriber deactivate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActive reports how many active subscribers a tenant has.
func (s *Store) CountActive(ctx context.Context, tenantID int64) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM subscribers WHERE tenant_id = $1 AND is_active = TRUE`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("subscriber count: %w", err)
	}
	return count, nil
}
