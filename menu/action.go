package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ActionKind enumerates the closed set of things a button can do.
type ActionKind string

const (
	ActionSendMessage   ActionKind = "send_message"
	ActionOpenLink      ActionKind = "open_link"
	ActionNavigate      ActionKind = "navigate"
	ActionLaunchForm    ActionKind = "launch_form"
	ActionInvokeWebhook ActionKind = "invoke_webhook"
)

// ErrInvalidAction reports a malformed or unknown action descriptor.
var ErrInvalidAction = errors.New("menu: invalid action descriptor")

// Action is the tagged union describing what a button does when pressed.
// Exactly one variant field is meaningful for a given Kind.
type Action struct {
	Kind ActionKind `json:"kind"`

	// SendMessage
	Text string `json:"text,omitempty"`

	// OpenLink
	URL string `json:"url,omitempty"`

	// Navigate
	TargetMenuID int64 `json:"target_menu_id,omitempty"`

	// LaunchForm
	FormID int64 `json:"form_id,omitempty"`

	// InvokeWebhook
	WebhookConfig json.RawMessage `json:"webhook_config,omitempty"`
}

// EncodeAction serializes an action descriptor for storage.
func EncodeAction(a Action) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(a)
}

// DecodeAction parses a stored action descriptor. Unknown kinds fail.
func DecodeAction(raw []byte) (Action, error) {
	var a Action
	if len(raw) == 0 {
		return a, fmt.Errorf("%w: empty", ErrInvalidAction)
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if err := a.Validate(); err != nil {
		return a, err
	}
	return a, nil
}

// Validate checks structural invariants of the descriptor.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionSendMessage:
		if strings.TrimSpace(a.Text) == "" {
			return fmt.Errorf("%w: send_message requires text", ErrInvalidAction)
		}
	case ActionOpenLink:
		if !ValidLinkURL(a.URL) {
			return fmt.Errorf("%w: open_link requires an http(s) url", ErrInvalidAction)
		}
	case ActionNavigate:
		if a.TargetMenuID <= 0 {
			return fmt.Errorf("%w: navigate requires target_menu_id", ErrInvalidAction)
		}
	case ActionLaunchForm:
		if a.FormID <= 0 {
			return fmt.Errorf("%w: launch_form requires form_id", ErrInvalidAction)
		}
	case ActionInvokeWebhook:
		if len(a.WebhookConfig) == 0 {
			return fmt.Errorf("%w: invoke_webhook requires config", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
	return nil
}

// ValidLinkURL reports whether s is an absolute http(s) URL.
func ValidLinkURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
