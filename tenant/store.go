package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/chatforge/chatforge/core/logger"
)

// ErrNotFound is returned when no active tenant matches the lookup.
var ErrNotFound = errors.New("tenant: not found")

// Store reads and writes tenants in PostgreSQL.
type Store struct {
	db     *sqlx.DB
	cipher *Cipher
}

// NewStore wires a tenant store over the shared database handle.
func NewStore(db *sqlx.DB, cipher *Cipher) *Store {
	return &Store{db: db, cipher: cipher}
}

// ByUsername resolves an active tenant by its webhook routing key.
func (s *Store) ByUsername(ctx context.Context, username string) (*Tenant, error) {
	var t Tenant
	err := s.db.GetContext(ctx, &t,
		`SELECT * FROM tenants WHERE username = $1 AND is_active = TRUE`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenant by username: %w", err)
	}
	return &t, nil
}

// ByID resolves a tenant by primary key regardless of active state.
func (s *Store) ByID(ctx context.Context, id int64) (*Tenant, error) {
	var t Tenant
	err := s.db.GetContext(ctx, &t, `SELECT * FROM tenants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenant by id: %w", err)
	}
	return &t, nil
}

// DecryptedToken returns the tenant's bot token in plaintext.
// Tokens are decrypted per request and never cached.
func (s *Store) DecryptedToken(ctx context.Context, tenantID int64) (string, error) {
	t, err := s.ByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	token, err := s.cipher.Decrypt(t.TokenCipher)
	if err != nil {
		logger.SVCTenants.Error("token decrypt failed",
			slog.String("event", "token.decrypt"),
			slog.Int64("tenant_id", tenantID),
			slog.String("err", err.Error()),
		)
		return "", err
	}
	return token, nil
}

// Create registers a new tenant bot, encrypting its token at rest.
func (s *Store) Create(ctx context.Context, username, name, token string, ownerTelegramID int64) (*Tenant, error) {
	blob, err := s.cipher.Encrypt(token)
	if err != nil {
		return nil, fmt.Errorf("tenant create: %w", err)
	}
	var t Tenant
	err = s.db.GetContext(ctx, &t, `
		INSERT INTO tenants (username, name, owner_telegram_id, token_cipher, tier, language, is_active, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, 'free', 'en', TRUE, NOW(), NOW())
		RETURNING *`,
		username, name, ownerTelegramID, blob)
	if err != nil {
		return nil, fmt.Errorf("tenant create: %w", err)
	}
	logger.SVCTenants.Info("tenant created",
		slog.String("event", "tenant.create"),
		slog.Int64("tenant_id", t.ID),
		slog.String("username", t.Username),
	)
	return &t, nil
}

// Deactivate soft-disables a tenant; its webhook events are rejected afterwards.
func (s *Store) Deactivate(ctx context.Context, tenantID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("tenant deactivate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetWebhookURL records the externally registered webhook endpoint.
func (s *Store) SetWebhookURL(ctx context.Context, tenantID int64, url string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET webhook_url = $2, updated_at = NOW() WHERE id = $1`, tenantID, url)
	if err != nil {
		return fmt.Errorf("tenant set webhook url: %w", err)
	}
	return nil
}

// CanCreateMenu checks the tenant's tier cap on menu count.
func (s *Store) CanCreateMenu(ctx context.Context, tenantID int64) (bool, error) {
	t, err := s.ByID(ctx, tenantID)
	if err != nil {
		return false, err
	}
	limits := LimitsFor(t.Tier)
	if limits.MaxMenus < 0 {
		return true, nil
	}
	var count int
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM menus WHERE tenant_id = $1 AND is_active = TRUE`, tenantID); err != nil {
		return false, fmt.Errorf("menu count: %w", err)
	}
	return allows(limits.MaxMenus, count), nil
}

// CanCreateButton checks the tenant's tier cap on buttons in one menu.
func (s *Store) CanCreateButton(ctx context.Context, menuID int64) (bool, error) {
	var tenantID int64
	err := s.db.GetContext(ctx, &tenantID,
		`SELECT tenant_id FROM menus WHERE id = $1`, menuID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("button limit lookup: %w", err)
	}
	t, err := s.ByID(ctx, tenantID)
	if err != nil {
		return false, err
	}
	limits := LimitsFor(t.Tier)
	if limits.MaxButtonsPerMenu < 0 {
		return true, nil
	}
	var count int
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM buttons WHERE menu_id = $1 AND is_active = TRUE`, menuID); err != nil {
		return false, fmt.Errorf("button count: %w", err)
	}
	return allows(limits.MaxButtonsPerMenu, count), nil
}
