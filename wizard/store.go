package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chatforge/chatforge/core/logger"
)

// Store persists wizard states. One row per (tenant, user); setting a new
// step overwrites the old one wholesale, so a restarted flow never sees
// leftovers from an earlier one.
type Store struct {
	db  *sqlx.DB
	ttl time.Duration
}

// NewStore wires a wizard store with the default abandonment TTL.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ttl: DefaultTTL}
}

// Get returns the current state, or nil when none exists. An expired state
// is deleted on read and reported as absent.
func (s *Store) Get(ctx context.Context, tenantID, userID int64) (*State, error) {
	var st State
	err := s.db.GetContext(ctx, &st,
		`SELECT * FROM wizard_states WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wizard get: %w", err)
	}
	if st.Expired(time.Now()) {
		_ = s.Clear(ctx, tenantID, userID)
		return nil, nil
	}
	return &st, nil
}

// Set records the owner's position in the flow, replacing any previous state
// and refreshing the TTL.
func (s *Store) Set(ctx context.Context, tenantID, userID int64, step Step, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wizard set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wizard_states (tenant_id, user_id, step, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET
			step = EXCLUDED.step,
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`,
		tenantID, userID, step, raw, time.Now().Add(s.ttl))
	if err != nil {
		return fmt.Errorf("wizard set: %w", err)
	}

	if logger.SVCWizard != nil {
		logger.SVCWizard.Debug("wizard step",
			slog.String("event", "wizard.step"),
			slog.Int64("tenant_id", tenantID),
			slog.Int64("user_id", userID),
			slog.String("step", string(step)),
		)
	}
	return nil
}

// Clear removes the state, ending the flow.
func (s *Store) Clear(ctx context.Context, tenantID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM wizard_states WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID)
	if err != nil {
		return fmt.Errorf("wizard clear: %w", err)
	}
	return nil
}

// Sweep deletes all expired states. Intended for a periodic background call.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wizard_states WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("wizard sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
