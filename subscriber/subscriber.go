package subscriber

import (
	"database/sql"
	"time"
)

// Subscriber is an end user of a tenant bot. Owners are classified at
// dispatch time and never recorded here.
type Subscriber struct {
	ID         int64          `db:"id"`
	TenantID   int64          `db:"tenant_id"`
	TelegramID int64          `db:"telegram_id"`
	Username   sql.NullString `db:"username"`
	FirstName  sql.NullString `db:"first_name"`
	LastName   sql.NullString `db:"last_name"`
	Language   sql.NullString `db:"language"`
	IsActive   bool           `db:"is_active"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
	LastSeenAt time.Time      `db:"last_seen_at"`
}

// DisplayName prefers the username, then the first name, then the numeric id.
func (s *Subscriber) DisplayName() string {
	if s.Username.Valid && s.Username.String != "" {
		return "@" + s.Username.String
	}
	if s.FirstName.Valid && s.FirstName.String != "" {
		return s.FirstName.String
	}
	return ""
}
