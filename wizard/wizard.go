package wizard

import (
	"encoding/json"
	"errors"
	"time"
)

// Step enumerates the authoring wizard's finite states. Each step defines the
// payload shape it expects; the zero value means no wizard is in progress.
type Step string

const (
	StepNone Step = ""

	// Menu creation.
	StepMenuName        Step = "menu.name"
	StepMenuDescription Step = "menu.description"
	StepMenuParent      Step = "menu.parent"

	// Button creation.
	StepButtonText   Step = "button.text"
	StepButtonAction Step = "button.action"
	StepButtonTarget Step = "button.target"
	StepButtonURL    Step = "button.url"
)

// ErrExpired is returned when a stored wizard state outlived its deadline.
var ErrExpired = errors.New("wizard: state expired")

// DefaultTTL bounds how long an abandoned wizard survives before Get treats
// it as gone.
const DefaultTTL = 30 * time.Minute

// State is the in-progress authoring flow of one owner, keyed by
// (tenant, user). It is overwritten on every step and cleared on completion
// or cancellation; it never touches the navigation context.
type State struct {
	TenantID  int64           `db:"tenant_id"`
	UserID    int64           `db:"user_id"`
	Step      Step            `db:"step"`
	Payload   json.RawMessage `db:"payload"`
	ExpiresAt time.Time       `db:"expires_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Expired reports whether the state is past its deadline at the given time.
func (s *State) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// DecodePayload unmarshals the step payload into dst.
func (s *State) DecodePayload(dst any) error {
	if len(s.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(s.Payload, dst)
}

// MenuDraft is the payload accumulated across the menu creation steps.
type MenuDraft struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
}

// ButtonDraft is the payload accumulated across the button creation steps.
type ButtonDraft struct {
	MenuID     int64  `json:"menu_id"`
	Text       string `json:"text,omitempty"`
	ActionKind string `json:"action_kind,omitempty"`
	TargetID   *int64 `json:"target_id,omitempty"`
	URL        string `json:"url,omitempty"`
	MessTxt    string `json:"message_text,omitempty"`
}
