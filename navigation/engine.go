package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/core/logger"
	"github.com/chatforge/chatforge/menu"
)

// FallbackText is rendered when a tenant has no default menu and no explicit
// target resolves. Subscribers never see raw error text.
const FallbackText = "Nothing here yet. Please check back later."

// Engine is the navigation state machine. Every transition is total: any
// input event resolves to a valid render, and structural problems (dangling
// targets, malformed actions) degrade to re-rendering a known-good menu
// without touching the stored context.
type Engine struct {
	menus    MenuSource
	contexts ContextStore
	events   EventLog
}

// NewEngine wires the state machine over its three collaborators.
func NewEngine(menus MenuSource, contexts ContextStore, events EventLog) *Engine {
	return &Engine{menus: menus, contexts: contexts, events: events}
}

func navLogger() *slog.Logger {
	if logger.NAV != nil {
		return logger.NAV
	}
	return slog.Default()
}

// Entry handles first contact: the tenant's default menu becomes the root of
// a fresh breadcrumb. Without a default menu the user gets the generic
// fallback and the context stays empty.
func (e *Engine) Entry(ctx context.Context, tenantID, userID int64) (Effect, error) {
	def, err := e.menus.DefaultMenu(ctx, tenantID)
	if errors.Is(err, menu.ErrNoDefault) {
		return Effect{Kind: EffectText, Text: FallbackText}, nil
	}
	if err != nil {
		return Effect{}, storageErr(err)
	}

	buttons, err := e.menus.Buttons(ctx, def.ID)
	if err != nil {
		return Effect{}, storageErr(err)
	}

	c, err := e.contexts.Update(ctx, tenantID, userID, func(c *Context) error {
		c.Reset(def.ID)
		c.Session = uuid.NewString()
		return nil
	})
	if err != nil {
		return Effect{}, err
	}
	_ = e.events.Append(ctx, Event{
		TenantID: tenantID, UserID: userID,
		MenuID: def.ID, Kind: EventView, Session: c.Session,
	})

	navLogger().LogAttrs(ctx, slog.LevelDebug, "entry",
		slog.String("event", "nav.entry"),
		slog.Int64("tenant_id", tenantID),
		slog.Int64("user_id", userID),
		slog.Int64("menu_id", def.ID),
	)
	return Effect{Kind: EffectMenu, Menu: def, Buttons: buttons}, nil
}

// Press handles one button press. The callback payload names both the button
// and the menu it was rendered on; stale payloads (button moved or removed
// since rendering) degrade to re-rendering the user's current menu.
func (e *Engine) Press(ctx context.Context, tenantID, userID, menuID, buttonID int64) (Effect, error) {
	btn, err := e.menus.Button(ctx, buttonID)
	if errors.Is(err, menu.ErrNotFound) {
		return e.rerender(ctx, tenantID, userID)
	}
	if err != nil {
		return Effect{}, storageErr(err)
	}
	if btn.MenuID != menuID {
		return e.rerender(ctx, tenantID, userID)
	}
	if _, err := e.menus.Menu(ctx, tenantID, btn.MenuID); err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			return e.rerender(ctx, tenantID, userID)
		}
		return Effect{}, storageErr(err)
	}

	action, err := btn.DecodeAction()
	if err != nil {
		navLogger().LogAttrs(ctx, slog.LevelWarn, "malformed action",
			slog.String("event", "nav.invalid_config"),
			slog.Int64("tenant_id", tenantID),
			slog.Int64("button_id", buttonID),
			slog.String("err", err.Error()),
		)
		return e.rerender(ctx, tenantID, userID)
	}

	res, err := e.resolve(ctx, tenantID, action)
	if err != nil {
		return Effect{}, err
	}

	eff := Dispatch(action, tenantID, res)
	switch eff.Kind {
	case EffectMenu:
		c, err := e.contexts.Update(ctx, tenantID, userID, func(c *Context) error {
			c.Push(eff.Menu.ID)
			return nil
		})
		if err != nil {
			return Effect{}, err
		}
		_ = e.events.Append(ctx, Event{
			TenantID: tenantID, UserID: userID,
			MenuID: eff.Menu.ID, ButtonID: &buttonID,
			Kind: EventNavigate, Session: c.Session,
		})
		return eff, nil

	case EffectText, EffectDelegate:
		// The menu stays visible; only the interaction is recorded.
		c, err := e.contexts.Load(ctx, tenantID, userID)
		if err != nil {
			return Effect{}, err
		}
		_ = e.events.Append(ctx, Event{
			TenantID: tenantID, UserID: userID,
			MenuID: btn.MenuID, ButtonID: &buttonID,
			Kind: EventAction, Session: c.Session,
		})
		return eff, nil

	case EffectFail:
		navLogger().LogAttrs(ctx, slog.LevelWarn, "press absorbed",
			slog.String("event", "nav.press_failed"),
			slog.Int64("tenant_id", tenantID),
			slog.Int64("user_id", userID),
			slog.Int64("button_id", buttonID),
			slog.String("action_kind", string(action.Kind)),
			slog.String("err", eff.Reason.Error()),
		)
		return e.rerender(ctx, tenantID, userID)
	}
	return e.rerender(ctx, tenantID, userID)
}

// resolve performs the lookups Dispatch is not allowed to do itself.
func (e *Engine) resolve(ctx context.Context, tenantID int64, action menu.Action) (Resolved, error) {
	if action.Kind != menu.ActionNavigate {
		return Resolved{}, nil
	}
	target, err := e.menus.Menu(ctx, tenantID, action.TargetMenuID)
	if errors.Is(err, menu.ErrNotFound) {
		return Resolved{}, nil
	}
	if err != nil {
		return Resolved{}, storageErr(err)
	}
	buttons, err := e.menus.Buttons(ctx, target.ID)
	if err != nil {
		return Resolved{}, storageErr(err)
	}
	return Resolved{Target: target, TargetButtons: buttons}, nil
}

// Back rewinds the breadcrumb one step. Menus deactivated while the user was
// below them are skipped, and an exhausted path falls back to the default
// menu. Pressing back at the root is therefore idempotent.
func (e *Engine) Back(ctx context.Context, tenantID, userID int64) (Effect, error) {
	var landed *menu.Menu
	c, err := e.contexts.Update(ctx, tenantID, userID, func(c *Context) error {
		for {
			id, ok := c.Pop()
			if !ok {
				def, err := e.menus.DefaultMenu(ctx, tenantID)
				if errors.Is(err, menu.ErrNoDefault) {
					c.Clear()
					return nil
				}
				if err != nil {
					return storageErr(err)
				}
				c.Reset(def.ID)
				landed = def
				return nil
			}
			m, err := e.menus.Menu(ctx, tenantID, id)
			if errors.Is(err, menu.ErrNotFound) {
				continue
			}
			if err != nil {
				return storageErr(err)
			}
			landed = m
			return nil
		}
	})
	if err != nil {
		return Effect{}, err
	}
	if landed == nil {
		return Effect{Kind: EffectText, Text: FallbackText}, nil
	}

	buttons, err := e.menus.Buttons(ctx, landed.ID)
	if err != nil {
		return Effect{}, storageErr(err)
	}
	_ = e.events.Append(ctx, Event{
		TenantID: tenantID, UserID: userID,
		MenuID: landed.ID, Kind: EventBack, Session: c.Session,
	})
	return Effect{Kind: EffectMenu, Menu: landed, Buttons: buttons}, nil
}

// Command resolves a slash-style trigger bound to a menu and resets the
// breadcrumb to that menu alone. Unknown triggers return menu.ErrNotFound so
// the caller can decide whether to ignore or fall back to Entry.
func (e *Engine) Command(ctx context.Context, tenantID, userID int64, trigger string) (Effect, error) {
	m, err := e.menus.ByTrigger(ctx, tenantID, trigger)
	if errors.Is(err, menu.ErrNotFound) {
		return Effect{}, err
	}
	if err != nil {
		return Effect{}, storageErr(err)
	}

	buttons, err := e.menus.Buttons(ctx, m.ID)
	if err != nil {
		return Effect{}, storageErr(err)
	}
	c, err := e.contexts.Update(ctx, tenantID, userID, func(c *Context) error {
		c.Reset(m.ID)
		c.Session = uuid.NewString()
		return nil
	})
	if err != nil {
		return Effect{}, err
	}
	_ = e.events.Append(ctx, Event{
		TenantID: tenantID, UserID: userID,
		MenuID: m.ID, Kind: EventView, Session: c.Session,
	})
	return Effect{Kind: EffectMenu, Menu: m, Buttons: buttons}, nil
}

// rerender shows the user's current menu again without changing the context,
// falling back to Entry when the current menu is gone or none was shown yet.
func (e *Engine) rerender(ctx context.Context, tenantID, userID int64) (Effect, error) {
	c, err := e.contexts.Load(ctx, tenantID, userID)
	if err != nil {
		return Effect{}, err
	}
	id, ok := c.AtMenu()
	if !ok {
		return e.Entry(ctx, tenantID, userID)
	}
	m, err := e.menus.Menu(ctx, tenantID, id)
	if errors.Is(err, menu.ErrNotFound) {
		return e.Entry(ctx, tenantID, userID)
	}
	if err != nil {
		return Effect{}, storageErr(err)
	}
	buttons, err := e.menus.Buttons(ctx, m.ID)
	if err != nil {
		return Effect{}, storageErr(err)
	}
	return Effect{Kind: EffectMenu, Menu: m, Buttons: buttons}, nil
}

// storageErr folds unexpected collaborator failures into the taxonomy while
// keeping already-classified errors intact.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageConflict) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
