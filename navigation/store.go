package navigation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chatforge/chatforge/core/logger"
	"github.com/chatforge/chatforge/menu"
)

// ContextStore loads and atomically mutates per-user navigation contexts.
// Load never fails with not-found: a missing row yields a fresh empty context.
// Update runs fn against the committed state under per-key serialization, so
// concurrent events from the same user are applied one at a time and the
// second always observes the first's committed path.
type ContextStore interface {
	Load(ctx context.Context, tenantID, userID int64) (*Context, error)
	Update(ctx context.Context, tenantID, userID int64, fn func(*Context) error) (*Context, error)
}

// EventKind classifies navigation log entries.
type EventKind string

const (
	EventView     EventKind = "view"
	EventNavigate EventKind = "navigate"
	EventAction   EventKind = "action"
	EventBack     EventKind = "back"
)

// Event is one append-only navigation log record. ButtonID is nil for bare
// view events.
type Event struct {
	TenantID int64
	UserID   int64
	MenuID   int64
	ButtonID *int64
	Kind     EventKind
	Session  string
	At       time.Time
}

// EventLog appends navigation events. Records are write-only; retention is
// an external concern.
type EventLog interface {
	Append(ctx context.Context, ev Event) error
}

// MenuSource is the read surface of the menu tree the engine depends on.
// *menu.Store satisfies it.
type MenuSource interface {
	Menu(ctx context.Context, tenantID, menuID int64) (*menu.Menu, error)
	Buttons(ctx context.Context, menuID int64) ([]menu.Button, error)
	Button(ctx context.Context, buttonID int64) (*menu.Button, error)
	DefaultMenu(ctx context.Context, tenantID int64) (*menu.Menu, error)
	ByTrigger(ctx context.Context, tenantID int64, trigger string) (*menu.Menu, error)
}

const conflictRetries = 3

// SQLContextStore keeps navigation contexts in Postgres. Atomicity per
// (tenant, user) is layered: an in-process keyed mutex serializes local
// callers, and SELECT ... FOR UPDATE serializes across processes. The whole
// read-modify-write runs in one transaction, so an abandoned request leaves
// the row either fully committed or untouched.
type SQLContextStore struct {
	db    *sqlx.DB
	locks *keyedLocks
}

// NewSQLContextStore wires a context store over the shared database handle.
func NewSQLContextStore(db *sqlx.DB) *SQLContextStore {
	return &SQLContextStore{db: db, locks: newKeyedLocks()}
}

// Load returns the committed context, or a fresh empty one if none exists.
// The fresh context is not persisted until the first Update.
func (s *SQLContextStore) Load(ctx context.Context, tenantID, userID int64) (*Context, error) {
	var c Context
	err := s.db.GetContext(ctx, &c,
		`SELECT * FROM navigation_contexts WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return freshContext(tenantID, userID), nil
	}
	if err != nil {
		return nil, classifyStorageErr("context load", err)
	}
	return &c, nil
}

// Update applies fn to the committed context and persists the result
// atomically. Serialization conflicts are retried internally up to
// conflictRetries times before surfacing ErrStorageConflict.
func (s *SQLContextStore) Update(ctx context.Context, tenantID, userID int64, fn func(*Context) error) (*Context, error) {
	unlock := s.locks.Lock(tenantID, userID)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		c, err := s.updateOnce(ctx, tenantID, userID, fn)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrStorageConflict) {
			return nil, err
		}
		lastErr = err
		logger.NAV.Warn("context update conflict",
			slog.String("event", "context.conflict"),
			slog.Int64("tenant_id", tenantID),
			slog.Int64("user_id", userID),
			slog.Int("attempts", attempt+1),
		)
	}
	return nil, lastErr
}

func (s *SQLContextStore) updateOnce(ctx context.Context, tenantID, userID int64, fn func(*Context) error) (*Context, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classifyStorageErr("context tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Ensure the row exists so FOR UPDATE has something to lock.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO navigation_contexts (tenant_id, user_id, current_menu_id, path, session, created_at, updated_at)
		VALUES ($1, $2, NULL, '{}', $3, NOW(), NOW())
		ON CONFLICT (tenant_id, user_id) DO NOTHING`,
		tenantID, userID, uuid.NewString()); err != nil {
		return nil, classifyStorageErr("context init", err)
	}

	var c Context
	err = tx.GetContext(ctx, &c,
		`SELECT * FROM navigation_contexts WHERE tenant_id = $1 AND user_id = $2 FOR UPDATE`,
		tenantID, userID)
	if err != nil {
		return nil, classifyStorageErr("context lock", err)
	}

	if err := fn(&c); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE navigation_contexts
		SET current_menu_id = $3, path = $4, session = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID, c.CurrentMenuID, c.Path, c.Session); err != nil {
		return nil, classifyStorageErr("context save", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classifyStorageErr("context commit", err)
	}
	return &c, nil
}

func freshContext(tenantID, userID int64) *Context {
	now := time.Now()
	return &Context{
		TenantID:  tenantID,
		UserID:    userID,
		Session:   uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// classifyStorageErr folds database failures into the navigation taxonomy:
// serialization and deadlock failures are conflicts worth retrying inside the
// store, everything else is reported transient for the transport to retry.
func classifyStorageErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%s: %w: %v", op, ErrStorageConflict, err)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}

// SQLEventLog appends navigation events to Postgres.
type SQLEventLog struct {
	db *sqlx.DB
}

// NewSQLEventLog wires an event log over the shared database handle.
func NewSQLEventLog(db *sqlx.DB) *SQLEventLog {
	return &SQLEventLog{db: db}
}

// Append writes one event. Failures are logged and swallowed: the analytics
// log must never break the click-handling path.
func (l *SQLEventLog) Append(ctx context.Context, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO navigation_events (tenant_id, user_id, menu_id, button_id, kind, session, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.TenantID, ev.UserID, ev.MenuID, ev.ButtonID, ev.Kind, ev.Session, at)
	if err != nil {
		logger.NAV.Warn("event append failed",
			slog.String("event", "navlog.append_failed"),
			slog.Int64("tenant_id", ev.TenantID),
			slog.Int64("user_id", ev.UserID),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// MenuStat aggregates activity for one menu.
type MenuStat struct {
	MenuID int64 `db:"menu_id"`
	Views  int64 `db:"views"`
	Clicks int64 `db:"clicks"`
}

// ButtonStat aggregates presses of one button.
type ButtonStat struct {
	ButtonID int64 `db:"button_id"`
	Clicks   int64 `db:"clicks"`
}

// MenuStats returns per-menu view and click totals for the owner screen.
func (l *SQLEventLog) MenuStats(ctx context.Context, tenantID int64) ([]MenuStat, error) {
	var stats []MenuStat
	err := l.db.SelectContext(ctx, &stats, `
		SELECT menu_id,
		       COUNT(*) FILTER (WHERE kind = 'view') AS views,
		       COUNT(*) FILTER (WHERE kind IN ('navigate', 'action', 'back')) AS clicks
		FROM navigation_events
		WHERE tenant_id = $1
		GROUP BY menu_id
		ORDER BY menu_id`,
		tenantID)
	if err != nil {
		return nil, classifyStorageErr("menu stats", err)
	}
	return stats, nil
}

// ButtonStats returns per-button press totals for the owner screen.
func (l *SQLEventLog) ButtonStats(ctx context.Context, tenantID int64) ([]ButtonStat, error) {
	var stats []ButtonStat
	err := l.db.SelectContext(ctx, &stats, `
		SELECT button_id, COUNT(*) AS clicks
		FROM navigation_events
		WHERE tenant_id = $1 AND button_id IS NOT NULL
		GROUP BY button_id
		ORDER BY clicks DESC, button_id`,
		tenantID)
	if err != nil {
		return nil, classifyStorageErr("button stats", err)
	}
	return stats, nil
}
