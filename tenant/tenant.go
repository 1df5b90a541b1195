// Package tenant holds the registry of operator-created child bots and the
// credential cipher guarding their API tokens.
package tenant

import (
	"database/sql"
	"time"
)

// Tier names a subscription level of a tenant's owner.
type Tier string

const (
	TierFree     Tier = "free"
	TierBasic    Tier = "basic"
	TierAdvanced Tier = "advanced"
	TierBusiness Tier = "business"
)

// Tenant is one operator-created child bot: an isolated data scope for
// menus, buttons, and subscribers.
type Tenant struct {
	ID              int64          `db:"id"`
	Username        string         `db:"username"`
	Name            sql.NullString `db:"name"`
	OwnerTelegramID int64          `db:"owner_telegram_id"`
	TokenCipher     string         `db:"token_cipher"`
	Tier            Tier           `db:"tier"`
	Language        string         `db:"language"`
	IsActive        bool           `db:"is_active"`
	WebhookURL      sql.NullString `db:"webhook_url"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// DisplayName returns the human-facing bot name, falling back to the username.
func (t *Tenant) DisplayName() string {
	if t.Name.Valid && t.Name.String != "" {
		return t.Name.String
	}
	return t.Username
}

// IsOwner reports whether the given sender identity is the tenant's registered owner.
func (t *Tenant) IsOwner(senderID int64) bool {
	return t.OwnerTelegramID != 0 && t.OwnerTelegramID == senderID
}
