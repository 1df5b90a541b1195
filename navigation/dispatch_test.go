package navigation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/menu"
)

func activeMenu(id, tenantID int64) *menu.Menu {
	return &menu.Menu{ID: id, TenantID: tenantID, Name: "m", IsActive: true}
}

func TestDispatchSendMessage(t *testing.T) {
	eff := Dispatch(menu.Action{Kind: menu.ActionSendMessage, Text: "hi"}, 1, Resolved{})
	assert.Equal(t, EffectText, eff.Kind)
	assert.Equal(t, "hi", eff.Text)

	eff = Dispatch(menu.Action{Kind: menu.ActionSendMessage}, 1, Resolved{})
	assert.Equal(t, EffectFail, eff.Kind)
	assert.ErrorIs(t, eff.Reason, ErrInvalidConfig)
}

func TestDispatchOpenLink(t *testing.T) {
	eff := Dispatch(menu.Action{Kind: menu.ActionOpenLink, URL: "https://example.com"}, 1, Resolved{})
	assert.Equal(t, EffectText, eff.Kind)

	// A malformed URL surfaces InvalidConfig, never a silent pass.
	eff = Dispatch(menu.Action{Kind: menu.ActionOpenLink, URL: "nope"}, 1, Resolved{})
	assert.Equal(t, EffectFail, eff.Kind)
	assert.ErrorIs(t, eff.Reason, ErrInvalidConfig)
}

func TestDispatchNavigate(t *testing.T) {
	target := activeMenu(5, 1)
	buttons := []menu.Button{{ID: 9, MenuID: 5, Text: "x"}}

	eff := Dispatch(menu.Action{Kind: menu.ActionNavigate, TargetMenuID: 5}, 1,
		Resolved{Target: target, TargetButtons: buttons})
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Equal(t, target, eff.Menu)
	assert.Equal(t, buttons, eff.Buttons)
}

func TestDispatchNavigateEmptyMenu(t *testing.T) {
	// Zero active buttons is a valid render, not an error.
	eff := Dispatch(menu.Action{Kind: menu.ActionNavigate, TargetMenuID: 5}, 1,
		Resolved{Target: activeMenu(5, 1)})
	require.Equal(t, EffectMenu, eff.Kind)
	assert.Empty(t, eff.Buttons)
}

func TestDispatchNavigateInvalidTarget(t *testing.T) {
	cases := []struct {
		name string
		res  Resolved
	}{
		{"missing", Resolved{}},
		{"soft-deleted", Resolved{Target: &menu.Menu{ID: 5, TenantID: 1, IsActive: false}}},
		{"foreign tenant", Resolved{Target: activeMenu(5, 2)}},
		{"id mismatch", Resolved{Target: activeMenu(6, 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eff := Dispatch(menu.Action{Kind: menu.ActionNavigate, TargetMenuID: 5}, 1, tc.res)
			assert.Equal(t, EffectFail, eff.Kind)
			assert.ErrorIs(t, eff.Reason, ErrInvalidTarget)
		})
	}
}

func TestDispatchDelegates(t *testing.T) {
	eff := Dispatch(menu.Action{Kind: menu.ActionLaunchForm, FormID: 3}, 1, Resolved{})
	require.Equal(t, EffectDelegate, eff.Kind)
	assert.Equal(t, CollaboratorForms, eff.Collaborator)
	assert.JSONEq(t, `{"form_id":3}`, string(eff.Payload))

	cfg := json.RawMessage(`{"url":"https://hook.example.com","method":"POST"}`)
	eff = Dispatch(menu.Action{Kind: menu.ActionInvokeWebhook, WebhookConfig: cfg}, 1, Resolved{})
	require.Equal(t, EffectDelegate, eff.Kind)
	assert.Equal(t, CollaboratorWebhooks, eff.Collaborator)
	assert.Equal(t, cfg, eff.Payload)

	eff = Dispatch(menu.Action{Kind: menu.ActionInvokeWebhook, WebhookConfig: json.RawMessage("{broken")}, 1, Resolved{})
	assert.Equal(t, EffectFail, eff.Kind)
	assert.ErrorIs(t, eff.Reason, ErrInvalidConfig)
}

func TestDispatchUnknownKind(t *testing.T) {
	eff := Dispatch(menu.Action{Kind: "teleport"}, 1, Resolved{})
	assert.Equal(t, EffectFail, eff.Kind)
	assert.ErrorIs(t, eff.Reason, ErrInvalidConfig)
}

func TestDispatchIsDeterministic(t *testing.T) {
	action := menu.Action{Kind: menu.ActionNavigate, TargetMenuID: 5}
	res := Resolved{Target: activeMenu(5, 1)}
	first := Dispatch(action, 1, res)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Dispatch(action, 1, res))
	}
}
