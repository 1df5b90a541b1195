// Package menu models the per-tenant hierarchy of interactive menus and the
// buttons bound to them.
package menu

import (
	"database/sql"
	"time"
)

// Kind distinguishes statically authored menus from dynamically generated ones.
type Kind string

const (
	KindStatic  Kind = "static"
	KindDynamic Kind = "dynamic"
)

// Menu is one node of a tenant's menu forest. ParentID is nil for roots.
type Menu struct {
	ID             int64          `db:"id"`
	TenantID       int64          `db:"tenant_id"`
	ParentID       sql.NullInt64  `db:"parent_id"`
	Name           string         `db:"name"`
	Description    sql.NullString `db:"description"`
	Kind           Kind           `db:"kind"`
	IsDefault      bool           `db:"is_default"`
	CommandTrigger sql.NullString `db:"command_trigger"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// IsRoot reports whether the menu has no parent.
func (m *Menu) IsRoot() bool {
	return !m.ParentID.Valid
}

// ButtonKind is the trigger mechanism of a button.
type ButtonKind string

const (
	// ButtonTap is an inline callback button.
	ButtonTap ButtonKind = "tap"
	// ButtonLink is a URL button opened by the client directly.
	ButtonLink ButtonKind = "link"
)

// Button belongs to exactly one menu and carries an action descriptor.
// Buttons render ordered by (row, column) then the explicit sort key.
type Button struct {
	ID           int64         `db:"id"`
	MenuID       int64         `db:"menu_id"`
	Text         string        `db:"text"`
	Emoji        sql.NullString `db:"emoji"`
	Kind         ButtonKind    `db:"kind"`
	Row          int           `db:"row_pos"`
	Column       int           `db:"col_pos"`
	SortKey      int           `db:"sort_key"`
	ActionJSON   []byte        `db:"action"`
	TargetMenuID sql.NullInt64 `db:"target_menu_id"`
	IsActive     bool          `db:"is_active"`
	CreatedAt    time.Time     `db:"created_at"`
}

// Label returns the rendered button text including an optional emoji prefix.
func (b *Button) Label() string {
	if b.Emoji.Valid && b.Emoji.String != "" {
		return b.Emoji.String + " " + b.Text
	}
	return b.Text
}

// DecodeAction parses the button's stored action descriptor.
func (b *Button) DecodeAction() (Action, error) {
	return DecodeAction(b.ActionJSON)
}
