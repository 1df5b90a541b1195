package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/chatforge/chatforge/core/logger"
)

var (
	// ErrNotFound is returned when a menu or button does not exist or is soft-deleted.
	ErrNotFound = errors.New("menu: not found")
	// ErrNoDefault is returned when a tenant has no default menu configured.
	ErrNoDefault = errors.New("menu: no default menu")
	// ErrCycle is returned when a parent link would make the tree cyclic.
	ErrCycle = errors.New("menu: parent chain would form a cycle")
	// ErrCrossTenant is returned when a reference crosses tenant boundaries.
	ErrCrossTenant = errors.New("menu: reference crosses tenant boundary")
)

// Store is the persisted menu tree: menus and buttons per tenant bot.
// Reads exclude soft-deleted rows; writes enforce the acyclic-parent and
// single-default invariants transactionally.
type Store struct {
	db *sqlx.DB
}

// NewStore wires a menu store over the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Menu fetches one active menu scoped to a tenant.
func (s *Store) Menu(ctx context.Context, tenantID, menuID int64) (*Menu, error) {
	var m Menu
	err := s.db.GetContext(ctx, &m,
		`SELECT * FROM menus WHERE id = $1 AND tenant_id = $2 AND is_active = TRUE`,
		menuID, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("menu get: %w", err)
	}
	return &m, nil
}

// Buttons returns the active buttons of a menu ordered by (row, column, sort key).
func (s *Store) Buttons(ctx context.Context, menuID int64) ([]Button, error) {
	var buttons []Button
	err := s.db.SelectContext(ctx, &buttons,
		`SELECT * FROM buttons
		 WHERE menu_id = $1 AND is_active = TRUE
		 ORDER BY row_pos, col_pos, sort_key, id`, menuID)
	if err != nil {
		return nil, fmt.Errorf("menu buttons: %w", err)
	}
	return buttons, nil
}

// Button fetches one active button by id.
func (s *Store) Button(ctx context.Context, buttonID int64) (*Button, error) {
	var b Button
	err := s.db.GetContext(ctx, &b,
		`SELECT * FROM buttons WHERE id = $1 AND is_active = TRUE`, buttonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("button get: %w", err)
	}
	return &b, nil
}

// DefaultMenu returns the tenant's entry-point menu, or ErrNoDefault.
func (s *Store) DefaultMenu(ctx context.Context, tenantID int64) (*Menu, error) {
	var m Menu
	err := s.db.GetContext(ctx, &m,
		`SELECT * FROM menus WHERE tenant_id = $1 AND is_default = TRUE AND is_active = TRUE`,
		tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDefault
	}
	if err != nil {
		return nil, fmt.Errorf("default menu: %w", err)
	}
	return &m, nil
}

// ByTrigger resolves an active menu bound to a command trigger like "/products".
func (s *Store) ByTrigger(ctx context.Context, tenantID int64, trigger string) (*Menu, error) {
	var m Menu
	err := s.db.GetContext(ctx, &m,
		`SELECT * FROM menus
		 WHERE tenant_id = $1 AND command_trigger = $2 AND is_active = TRUE`,
		tenantID, trigger)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("menu by trigger: %w", err)
	}
	return &m, nil
}

// Children lists the active child menus of a menu.
func (s *Store) Children(ctx context.Context, menuID int64) ([]Menu, error) {
	var menus []Menu
	err := s.db.SelectContext(ctx, &menus,
		`SELECT * FROM menus WHERE parent_id = $1 AND is_active = TRUE ORDER BY id`, menuID)
	if err != nil {
		return nil, fmt.Errorf("menu children: %w", err)
	}
	return menus, nil
}

// ForTenant lists all active menus of a tenant for authoring screens.
func (s *Store) ForTenant(ctx context.Context, tenantID int64) ([]Menu, error) {
	var menus []Menu
	err := s.db.SelectContext(ctx, &menus,
		`SELECT * FROM menus WHERE tenant_id = $1 AND is_active = TRUE ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("menus for tenant: %w", err)
	}
	return menus, nil
}

// CreateMenuParams carries the fields of a new menu.
type CreateMenuParams struct {
	TenantID       int64
	ParentID       *int64
	Name           string
	Description    string
	Kind           Kind
	IsDefault      bool
	CommandTrigger string
}

// CreateMenu inserts a menu after validating the parent link.
// The parent must belong to the same tenant and the resulting chain must be
// acyclic; cycle-freedom is enforced here at write time, not at read time.
func (s *Store) CreateMenu(ctx context.Context, p CreateMenuParams) (*Menu, error) {
	if p.Kind == "" {
		p.Kind = KindStatic
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("menu create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if p.ParentID != nil {
		if err := validateParent(ctx, tx, p.TenantID, *p.ParentID, 0); err != nil {
			return nil, err
		}
	}

	if p.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE menus SET is_default = FALSE, updated_at = NOW()
			 WHERE tenant_id = $1 AND is_default = TRUE`, p.TenantID); err != nil {
			return nil, fmt.Errorf("menu create: unset default: %w", err)
		}
	}

	var m Menu
	err = tx.GetContext(ctx, &m, `
		INSERT INTO menus (tenant_id, parent_id, name, description, kind, is_default, command_trigger, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), TRUE, NOW(), NOW())
		RETURNING *`,
		p.TenantID, p.ParentID, p.Name, p.Description, p.Kind, p.IsDefault, p.CommandTrigger)
	if err != nil {
		return nil, fmt.Errorf("menu create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("menu create: commit: %w", err)
	}

	logger.SVCMenus.Info("menu created",
		slog.String("event", "menu.create"),
		slog.Int64("tenant_id", m.TenantID),
		slog.Int64("menu_id", m.ID),
		slog.Bool("default", m.IsDefault),
	)
	return &m, nil
}

// validateParent walks the ancestor chain of parentID inside the transaction,
// rejecting cross-tenant links and cycles. newChildID is 0 on insert; on
// re-parenting it is the menu being moved.
func validateParent(ctx context.Context, tx *sqlx.Tx, tenantID, parentID, newChildID int64) error {
	current := parentID
	for depth := 0; current != 0; depth++ {
		if depth > 64 {
			return ErrCycle
		}
		if newChildID != 0 && current == newChildID {
			return ErrCycle
		}
		var row struct {
			TenantID int64         `db:"tenant_id"`
			ParentID sql.NullInt64 `db:"parent_id"`
		}
		err := tx.GetContext(ctx, &row,
			`SELECT tenant_id, parent_id FROM menus WHERE id = $1`, current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("parent walk: %w", err)
		}
		if row.TenantID != tenantID {
			return ErrCrossTenant
		}
		if !row.ParentID.Valid {
			return nil
		}
		current = row.ParentID.Int64
	}
	return nil
}

// SetDefault atomically flags menuID as the tenant's entry point, unsetting
// any previous default in the same transaction.
func (s *Store) SetDefault(ctx context.Context, tenantID, menuID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM menus WHERE id = $1 AND tenant_id = $2 AND is_active = TRUE)`,
		menuID, tenantID); err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE menus SET is_default = FALSE, updated_at = NOW()
		 WHERE tenant_id = $1 AND is_default = TRUE AND id <> $2`, tenantID, menuID); err != nil {
		return fmt.Errorf("set default: unset previous: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE menus SET is_default = TRUE, updated_at = NOW() WHERE id = $1`, menuID); err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set default: commit: %w", err)
	}

	logger.SVCMenus.Info("default menu changed",
		slog.String("event", "menu.set_default"),
		slog.Int64("tenant_id", tenantID),
		slog.Int64("menu_id", menuID),
	)
	return nil
}

// SoftDeleteMenu deactivates a menu and cascades through all descendant
// menus and their buttons in one transaction.
func (s *Store) SoftDeleteMenu(ctx context.Context, tenantID, menuID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("menu delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM menus WHERE id = $1 AND tenant_id = $2
			UNION ALL
			SELECT m.id FROM menus m JOIN subtree s ON m.parent_id = s.id
		)
		UPDATE menus SET is_active = FALSE, is_default = FALSE, updated_at = NOW()
		WHERE id IN (SELECT id FROM subtree)`, menuID, tenantID)
	if err != nil {
		return fmt.Errorf("menu delete: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM menus WHERE id = $1 AND tenant_id = $2
			UNION ALL
			SELECT m.id FROM menus m JOIN subtree s ON m.parent_id = s.id
		)
		UPDATE buttons SET is_active = FALSE
		WHERE menu_id IN (SELECT id FROM subtree)`, menuID, tenantID); err != nil {
		return fmt.Errorf("menu delete: buttons: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("menu delete: commit: %w", err)
	}

	logger.SVCMenus.Info("menu subtree deactivated",
		slog.String("event", "menu.soft_delete"),
		slog.Int64("tenant_id", tenantID),
		slog.Int64("menu_id", menuID),
		slog.Int64("count", affected),
	)
	return nil
}

// CreateButtonParams carries the fields of a new button.
type CreateButtonParams struct {
	MenuID  int64
	Text    string
	Emoji   string
	Kind    ButtonKind
	Row     int
	Column  int
	SortKey int
	Action  Action
}

// CreateButton inserts a button after validating its action descriptor and,
// for navigate actions, that the target menu belongs to the same tenant.
func (s *Store) CreateButton(ctx context.Context, p CreateButtonParams) (*Button, error) {
	if p.Kind == "" {
		p.Kind = ButtonTap
	}
	raw, err := EncodeAction(p.Action)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("button create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var tenantID int64
	err = tx.GetContext(ctx, &tenantID,
		`SELECT tenant_id FROM menus WHERE id = $1 AND is_active = TRUE`, p.MenuID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("button create: %w", err)
	}

	var target *int64
	if p.Action.Kind == ActionNavigate {
		var targetTenant int64
		err = tx.GetContext(ctx, &targetTenant,
			`SELECT tenant_id FROM menus WHERE id = $1`, p.Action.TargetMenuID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("button create: target: %w", err)
		}
		if targetTenant != tenantID {
			return nil, ErrCrossTenant
		}
		target = &p.Action.TargetMenuID
	}

	var b Button
	err = tx.GetContext(ctx, &b, `
		INSERT INTO buttons (menu_id, text, emoji, kind, row_pos, col_pos, sort_key, action, target_menu_id, is_active, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, TRUE, NOW())
		RETURNING *`,
		p.MenuID, p.Text, p.Emoji, p.Kind, p.Row, p.Column, p.SortKey, raw, target)
	if err != nil {
		return nil, fmt.Errorf("button create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("button create: commit: %w", err)
	}

	logger.SVCMenus.Info("button created",
		slog.String("event", "button.create"),
		slog.Int64("menu_id", b.MenuID),
		slog.Int64("button_id", b.ID),
		slog.String("action_kind", string(p.Action.Kind)),
	)
	return &b, nil
}

// SoftDeleteButton deactivates a single button.
func (s *Store) SoftDeleteButton(ctx context.Context, buttonID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE buttons SET is_active = FALSE WHERE id = $1`, buttonID)
	if err != nil {
		return fmt.Errorf("button delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
