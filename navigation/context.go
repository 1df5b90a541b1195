package navigation

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Context is one user's position inside a tenant's menu tree: the menu
// currently shown plus the breadcrumb path from the root, most recent last.
// Exactly one row exists per (tenant, user); it is created lazily on first
// contact and mutated on every navigation event.
type Context struct {
	TenantID      int64         `db:"tenant_id"`
	UserID        int64         `db:"user_id"`
	CurrentMenuID sql.NullInt64 `db:"current_menu_id"`
	Path          pq.Int64Array `db:"path"`
	Session       string        `db:"session"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

// Push appends menuID to the breadcrumb and makes it current.
func (c *Context) Push(menuID int64) {
	c.Path = append(c.Path, menuID)
	c.CurrentMenuID = sql.NullInt64{Int64: menuID, Valid: true}
}

// Pop removes the last breadcrumb entry and returns the menu underneath it.
// The second return is false when the path is exhausted, meaning the caller
// should fall back to the tenant default.
func (c *Context) Pop() (int64, bool) {
	if len(c.Path) > 0 {
		c.Path = c.Path[:len(c.Path)-1]
	}
	if len(c.Path) == 0 {
		c.CurrentMenuID = sql.NullInt64{}
		return 0, false
	}
	top := int64(c.Path[len(c.Path)-1])
	c.CurrentMenuID = sql.NullInt64{Int64: top, Valid: true}
	return top, true
}

// Reset discards the breadcrumb and places the user at menuID alone.
// Commands short-circuit history, so their bound menu becomes the new root.
func (c *Context) Reset(menuID int64) {
	c.Path = pq.Int64Array{menuID}
	c.CurrentMenuID = sql.NullInt64{Int64: menuID, Valid: true}
}

// Clear empties the context entirely, as if the user never interacted.
func (c *Context) Clear() {
	c.Path = nil
	c.CurrentMenuID = sql.NullInt64{}
}

// AtMenu returns the current menu id, false when no menu is shown yet.
func (c *Context) AtMenu() (int64, bool) {
	if !c.CurrentMenuID.Valid {
		return 0, false
	}
	return c.CurrentMenuID.Int64, true
}
