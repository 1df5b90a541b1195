// Package authoring implements the owner-facing admin flow: a command plus
// multi-step wizard surface for building a tenant's menu tree. Only owners
// reach this package; subscriber traffic goes to the navigation engine.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/chatforge/chatforge/core/logger"
	"github.com/chatforge/chatforge/menu"
	"github.com/chatforge/chatforge/navigation"
	"github.com/chatforge/chatforge/tenant"
	"github.com/chatforge/chatforge/wizard"
)

// StatsSource reads navigation activity totals for the owner screen.
// *navigation.SQLEventLog satisfies it.
type StatsSource interface {
	MenuStats(ctx context.Context, tenantID int64) ([]navigation.MenuStat, error)
	ButtonStats(ctx context.Context, tenantID int64) ([]navigation.ButtonStat, error)
}

// Reply is the owner-visible result of one authoring interaction. Unlike
// subscriber renders, owners see explicit, actionable error text.
type Reply struct {
	Text string
}

const helpText = `Authoring commands:
/menus - list your menus
/newmenu - create a menu
/newbutton <menu id> - add a button to a menu
/setdefault <menu id> - make a menu the entry point
/delmenu <menu id> - deactivate a menu and its subtree
/stats - menu view and button click totals
/cancel - abort the current wizard`

// Flow drives the authoring conversation for one tenant owner.
type Flow struct {
	tenants *tenant.Store
	menus   *menu.Store
	wizards *wizard.Store
	stats   StatsSource
}

// NewFlow wires the authoring flow over its stores.
func NewFlow(tenants *tenant.Store, menus *menu.Store, wizards *wizard.Store, stats StatsSource) *Flow {
	return &Flow{tenants: tenants, menus: menus, wizards: wizards, stats: stats}
}

// HandleText processes one owner message: a command starts or cancels a
// flow, any other text feeds the step the wizard is waiting on.
func (f *Flow) HandleText(ctx context.Context, t *tenant.Tenant, userID int64, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") && text != "/skip" {
		return f.handleCommand(ctx, t, userID, text)
	}

	st, err := f.wizards.Get(ctx, t.ID, userID)
	if err != nil {
		return Reply{}, err
	}
	if st == nil {
		return Reply{Text: helpText}, nil
	}
	return f.handleStep(ctx, t, userID, st, text)
}

func (f *Flow) handleCommand(ctx context.Context, t *tenant.Tenant, userID int64, text string) (Reply, error) {
	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/cancel":
		if err := f.wizards.Clear(ctx, t.ID, userID); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Cancelled."}, nil

	case "/menus":
		return f.listMenus(ctx, t)

	case "/stats":
		return f.showStats(ctx, t)

	case "/newmenu":
		ok, err := f.tenants.CanCreateMenu(ctx, t.ID)
		if err != nil {
			return Reply{}, err
		}
		if !ok {
			limits := tenant.LimitsFor(t.Tier)
			return Reply{Text: fmt.Sprintf(
				"Your %s plan allows up to %d menus. Upgrade to add more.",
				t.Tier, limits.MaxMenus)}, tenant.ErrLimitExceeded
		}
		if err := f.wizards.Set(ctx, t.ID, userID, wizard.StepMenuName, wizard.MenuDraft{}); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Send the menu name."}, nil

	case "/newbutton":
		menuID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Reply{Text: "Usage: /newbutton <menu id>"}, nil
		}
		if _, err := f.menus.Menu(ctx, t.ID, menuID); err != nil {
			if errors.Is(err, menu.ErrNotFound) {
				return Reply{Text: fmt.Sprintf("Menu %d not found.", menuID)}, nil
			}
			return Reply{}, err
		}
		ok, err := f.tenants.CanCreateButton(ctx, menuID)
		if err != nil {
			return Reply{}, err
		}
		if !ok {
			limits := tenant.LimitsFor(t.Tier)
			return Reply{Text: fmt.Sprintf(
				"Your %s plan allows up to %d buttons per menu.",
				t.Tier, limits.MaxButtonsPerMenu)}, tenant.ErrLimitExceeded
		}
		draft := wizard.ButtonDraft{MenuID: menuID}
		if err := f.wizards.Set(ctx, t.ID, userID, wizard.StepButtonText, draft); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Send the button text."}, nil

	case "/setdefault":
		menuID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Reply{Text: "Usage: /setdefault <menu id>"}, nil
		}
		if err := f.menus.SetDefault(ctx, t.ID, menuID); err != nil {
			if errors.Is(err, menu.ErrNotFound) {
				return Reply{Text: fmt.Sprintf("Menu %d not found.", menuID)}, nil
			}
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("Menu %d is now the entry point.", menuID)}, nil

	case "/delmenu":
		menuID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Reply{Text: "Usage: /delmenu <menu id>"}, nil
		}
		if err := f.menus.SoftDeleteMenu(ctx, t.ID, menuID); err != nil {
			if errors.Is(err, menu.ErrNotFound) {
				return Reply{Text: fmt.Sprintf("Menu %d not found.", menuID)}, nil
			}
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("Menu %d and its submenus were deactivated.", menuID)}, nil
	}
	return Reply{Text: helpText}, nil
}

func (f *Flow) listMenus(ctx context.Context, t *tenant.Tenant) (Reply, error) {
	menus, err := f.menus.ForTenant(ctx, t.ID)
	if err != nil {
		return Reply{}, err
	}
	if len(menus) == 0 {
		return Reply{Text: "No menus yet. Use /newmenu to create one."}, nil
	}
	var b strings.Builder
	b.WriteString("Your menus:\n")
	for _, m := range menus {
		fmt.Fprintf(&b, "%d. %s", m.ID, m.Name)
		if m.IsDefault {
			b.WriteString(" (default)")
		}
		if m.ParentID.Valid {
			fmt.Fprintf(&b, " [parent %d]", m.ParentID.Int64)
		}
		b.WriteString("\n")
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func (f *Flow) showStats(ctx context.Context, t *tenant.Tenant) (Reply, error) {
	menuStats, err := f.stats.MenuStats(ctx, t.ID)
	if err != nil {
		return Reply{}, err
	}
	if len(menuStats) == 0 {
		return Reply{Text: "No activity yet."}, nil
	}

	menus, err := f.menus.ForTenant(ctx, t.ID)
	if err != nil {
		return Reply{}, err
	}
	names := make(map[int64]string, len(menus))
	for _, m := range menus {
		names[m.ID] = m.Name
	}

	var b strings.Builder
	b.WriteString("Menu activity:\n")
	for _, s := range menuStats {
		name := names[s.MenuID]
		if name == "" {
			name = fmt.Sprintf("menu %d", s.MenuID)
		}
		fmt.Fprintf(&b, "%s: %d views, %d clicks\n", name, s.Views, s.Clicks)
	}

	buttonStats, err := f.stats.ButtonStats(ctx, t.ID)
	if err != nil {
		return Reply{}, err
	}
	if len(buttonStats) > 0 {
		b.WriteString("\nTop buttons:\n")
		for i, s := range buttonStats {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "button %d: %d presses\n", s.ButtonID, s.Clicks)
		}
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func (f *Flow) handleStep(ctx context.Context, t *tenant.Tenant, userID int64, st *wizard.State, text string) (Reply, error) {
	switch st.Step {
	case wizard.StepMenuName:
		var draft wizard.MenuDraft
		if err := st.DecodePayload(&draft); err != nil {
			return Reply{}, err
		}
		if text == "" {
			return Reply{Text: "The menu name cannot be empty. Send the menu name."}, nil
		}
		draft.Name = text
		if err := f.wizards.Set(ctx, t.ID, userID, wizard.StepMenuDescription, draft); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Send a description, or /skip."}, nil

	case wizard.StepMenuDescription:
		var draft wizard.MenuDraft
		if err := st.DecodePayload(&draft); err != nil {
			return Reply{}, err
		}
		if text != "/skip" {
			draft.Description = text
		}
		if err := f.wizards.Set(ctx, t.ID, userID, wizard.StepMenuParent, draft); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Send the parent menu id, or /skip for a root menu."}, nil

	case wizard.StepMenuParent:
		var draft wizard.MenuDraft
		if err := st.DecodePayload(&draft); err != nil {
			return Reply{}, err
		}
		if text != "/skip" {
			parentID, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return Reply{Text: "Send a numeric menu id, or /skip."}, nil
			}
			draft.ParentID = &parentID
		}
		return f.createMenu(ctx, t, userID, draft)

	case wizard.StepButtonText:
		var draft wizard.ButtonDraft
		if err := st.DecodePayload(&draft); err != nil {
			return Reply{}, err
		}
		if text == "" {
			return Reply{Text: "The button text cannot be empty. Send the button text."}, nil
		}
		draft.Text = text
		if err := f.wizards.Set(ctx, t.ID, userID, wizard.StepButtonAction, draft); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Send the action:\nmessage <text>\nurl <link>\nmenu <submenu id>"}, nil

	case wizard.StepButtonAction:
		var draft wizard.ButtonDraft
		if err := st.DecodePayload(&draft); err != nil {
			return Reply{}, err
		}
		return f.createButton(ctx, t, userID, draft, text)
	}

	// Unknown persisted step, most likely from an interrupted deploy.
	if err := f.wizards.Clear(ctx, t.ID, userID); err != nil {
		return Reply{}, err
	}
	return Reply{Text: helpText}, nil
}

func (f *Flow) createMenu(ctx context.Context, t *tenant.Tenant, userID int64, draft wizard.MenuDraft) (Reply, error) {
	// The first menu of a tenant becomes the entry point automatically.
	isDefault := false
	if _, err := f.menus.DefaultMenu(ctx, t.ID); errors.Is(err, menu.ErrNoDefault) {
		isDefault = true
	} else if err != nil {
		return Reply{}, err
	}

	m, err := f.menus.CreateMenu(ctx, menu.CreateMenuParams{
		TenantID:    t.ID,
		ParentID:    draft.ParentID,
		Name:        draft.Name,
		Description: draft.Description,
		IsDefault:   isDefault,
	})
	switch {
	case errors.Is(err, menu.ErrNotFound):
		return Reply{Text: "That parent menu does not exist. Send another id, or /skip."}, nil
	case errors.Is(err, menu.ErrCrossTenant), errors.Is(err, menu.ErrCycle):
		return Reply{Text: "That parent cannot be used. Send another id, or /skip."}, nil
	case err != nil:
		return Reply{}, err
	}

	if err := f.wizards.Clear(ctx, t.ID, userID); err != nil {
		return Reply{}, err
	}
	logger.SVCWizard.Info("menu authored",
		slog.String("event", "authoring.menu_created"),
		slog.Int64("tenant_id", t.ID),
		slog.Int64("menu_id", m.ID),
	)
	note := ""
	if m.IsDefault {
		note = " It is now your entry point."
	}
	return Reply{Text: fmt.Sprintf("Menu %q created with id %d.%s", m.Name, m.ID, note)}, nil
}

func (f *Flow) createButton(ctx context.Context, t *tenant.Tenant, userID int64, draft wizard.ButtonDraft, text string) (Reply, error) {
	action, reply := parseActionInput(text)
	if reply != "" {
		return Reply{Text: reply}, nil
	}

	// Place the new button on its own row below the existing grid.
	existing, err := f.menus.Buttons(ctx, draft.MenuID)
	if err != nil {
		return Reply{}, err
	}
	row := 0
	for _, b := range existing {
		if b.Row >= row {
			row = b.Row + 1
		}
	}

	b, err := f.menus.CreateButton(ctx, menu.CreateButtonParams{
		MenuID: draft.MenuID,
		Text:   draft.Text,
		Row:    row,
		Action: action,
	})
	switch {
	case errors.Is(err, menu.ErrNotFound):
		return Reply{Text: "That submenu does not exist. Send the action again."}, nil
	case errors.Is(err, menu.ErrCrossTenant):
		return Reply{Text: "That submenu belongs to another bot. Send the action again."}, nil
	case errors.Is(err, menu.ErrInvalidAction):
		return Reply{Text: "That action is not valid. Send the action again."}, nil
	case err != nil:
		return Reply{}, err
	}

	if err := f.wizards.Clear(ctx, t.ID, userID); err != nil {
		return Reply{}, err
	}
	logger.SVCWizard.Info("button authored",
		slog.String("event", "authoring.button_created"),
		slog.Int64("tenant_id", t.ID),
		slog.Int64("menu_id", draft.MenuID),
		slog.Int64("button_id", b.ID),
	)
	return Reply{Text: fmt.Sprintf("Button %q added to menu %d.", draft.Text, draft.MenuID)}, nil
}

// parseActionInput turns the owner's "<kind> <value>" line into an action
// descriptor. The second return carries corrective text for bad input.
func parseActionInput(text string) (menu.Action, string) {
	kind, value, _ := strings.Cut(strings.TrimSpace(text), " ")
	value = strings.TrimSpace(value)

	switch strings.ToLower(kind) {
	case "message":
		if value == "" {
			return menu.Action{}, "Usage: message <text>"
		}
		return menu.Action{Kind: menu.ActionSendMessage, Text: value}, ""
	case "url":
		if !menu.ValidLinkURL(value) {
			return menu.Action{}, "Send a full http(s) link: url <link>"
		}
		return menu.Action{Kind: menu.ActionOpenLink, URL: value}, ""
	case "menu":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return menu.Action{}, "Usage: menu <submenu id>"
		}
		return menu.Action{Kind: menu.ActionNavigate, TargetMenuID: id}, ""
	}
	return menu.Action{}, "Send one of:\nmessage <text>\nurl <link>\nmenu <submenu id>"
}
