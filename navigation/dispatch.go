package navigation

import (
	"encoding/json"

	"github.com/chatforge/chatforge/menu"
)

// EffectKind enumerates dispatcher outcomes.
type EffectKind string

const (
	// EffectText renders a plain text message; the current menu stays visible.
	EffectText EffectKind = "render_text"
	// EffectMenu renders a menu with its button grid.
	EffectMenu EffectKind = "render_menu"
	// EffectDelegate hands the action off to an external collaborator.
	EffectDelegate EffectKind = "delegate"
	// EffectFail signals a structural problem the engine must absorb.
	EffectFail EffectKind = "fail"
)

// Collaborator names the external handler a delegated action targets.
type Collaborator string

const (
	CollaboratorForms    Collaborator = "forms"
	CollaboratorWebhooks Collaborator = "webhooks"
)

// Effect is the result of dispatching one button action. Exactly one of the
// kind-specific field groups is populated.
type Effect struct {
	Kind EffectKind

	// EffectText
	Text string

	// EffectMenu
	Menu    *menu.Menu
	Buttons []menu.Button

	// EffectDelegate
	Collaborator Collaborator
	Payload      json.RawMessage

	// EffectFail
	Reason error
}

// Resolved carries the lookups the caller performed before dispatching.
// Target is nil when the navigate target is missing or soft-deleted.
// Keeping lookups outside Dispatch keeps it a pure function of its inputs.
type Resolved struct {
	Target        *menu.Menu
	TargetButtons []menu.Button
}

// Dispatch maps a button action to its effect. It is deterministic, performs
// no I/O, and handles every action kind of the closed set; unknown kinds
// degrade to EffectFail with ErrInvalidConfig.
func Dispatch(action menu.Action, tenantID int64, res Resolved) Effect {
	switch action.Kind {
	case menu.ActionSendMessage:
		if action.Text == "" {
			return Effect{Kind: EffectFail, Reason: ErrInvalidConfig}
		}
		return Effect{Kind: EffectText, Text: action.Text}

	case menu.ActionOpenLink:
		if !menu.ValidLinkURL(action.URL) {
			return Effect{Kind: EffectFail, Reason: ErrInvalidConfig}
		}
		return Effect{Kind: EffectText, Text: action.URL}

	case menu.ActionNavigate:
		t := res.Target
		if t == nil || !t.IsActive || t.TenantID != tenantID || t.ID != action.TargetMenuID {
			return Effect{Kind: EffectFail, Reason: ErrInvalidTarget}
		}
		return Effect{Kind: EffectMenu, Menu: t, Buttons: res.TargetButtons}

	case menu.ActionLaunchForm:
		if action.FormID == 0 {
			return Effect{Kind: EffectFail, Reason: ErrInvalidConfig}
		}
		payload, _ := json.Marshal(struct {
			FormID int64 `json:"form_id"`
		}{FormID: action.FormID})
		return Effect{Kind: EffectDelegate, Collaborator: CollaboratorForms, Payload: payload}

	case menu.ActionInvokeWebhook:
		if len(action.WebhookConfig) == 0 || !json.Valid(action.WebhookConfig) {
			return Effect{Kind: EffectFail, Reason: ErrInvalidConfig}
		}
		return Effect{Kind: EffectDelegate, Collaborator: CollaboratorWebhooks, Payload: action.WebhookConfig}
	}
	return Effect{Kind: EffectFail, Reason: ErrInvalidConfig}
}
