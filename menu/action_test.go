package menu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeAction(t *testing.T) {
	cases := []struct {
		name   string
		action Action
	}{
		{"send_message", Action{Kind: ActionSendMessage, Text: "hello"}},
		{"open_link", Action{Kind: ActionOpenLink, URL: "https://example.com/x"}},
		{"navigate", Action{Kind: ActionNavigate, TargetMenuID: 42}},
		{"launch_form", Action{Kind: ActionLaunchForm, FormID: 7}},
		{"invoke_webhook", Action{Kind: ActionInvokeWebhook, WebhookConfig: json.RawMessage(`{"url":"https://hook.example.com"}`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := EncodeAction(tc.action)
			require.NoError(t, err)

			got, err := DecodeAction(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.action.Kind, got.Kind)
			assert.Equal(t, tc.action.Text, got.Text)
			assert.Equal(t, tc.action.URL, got.URL)
			assert.Equal(t, tc.action.TargetMenuID, got.TargetMenuID)
			assert.Equal(t, tc.action.FormID, got.FormID)
		})
	}
}

func TestActionValidateRejectsMalformed(t *testing.T) {
	cases := []struct {
		name   string
		action Action
	}{
		{"unknown kind", Action{Kind: "explode"}},
		{"empty kind", Action{}},
		{"message without text", Action{Kind: ActionSendMessage}},
		{"message with blank text", Action{Kind: ActionSendMessage, Text: "   "}},
		{"link without url", Action{Kind: ActionOpenLink}},
		{"link with relative url", Action{Kind: ActionOpenLink, URL: "/relative"}},
		{"link with ftp url", Action{Kind: ActionOpenLink, URL: "ftp://example.com"}},
		{"navigate without target", Action{Kind: ActionNavigate}},
		{"navigate with negative target", Action{Kind: ActionNavigate, TargetMenuID: -3}},
		{"form without id", Action{Kind: ActionLaunchForm}},
		{"webhook without config", Action{Kind: ActionInvokeWebhook}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.action.Validate()
			assert.ErrorIs(t, err, ErrInvalidAction)

			_, err = EncodeAction(tc.action)
			assert.ErrorIs(t, err, ErrInvalidAction)
		})
	}
}

func TestDecodeActionRejectsGarbage(t *testing.T) {
	_, err := DecodeAction(nil)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = DecodeAction([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = DecodeAction([]byte(`{"kind":"mystery"}`))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestValidLinkURL(t *testing.T) {
	assert.True(t, ValidLinkURL("https://example.com"))
	assert.True(t, ValidLinkURL("http://example.com/path?q=1"))
	assert.True(t, ValidLinkURL("  https://example.com  "))
	assert.False(t, ValidLinkURL(""))
	assert.False(t, ValidLinkURL("example.com"))
	assert.False(t, ValidLinkURL("tg://resolve"))
	assert.False(t, ValidLinkURL("https://"))
}

func TestButtonLabel(t *testing.T) {
	b := Button{Text: "Products"}
	assert.Equal(t, "Products", b.Label())

	b.Emoji.String = "🛒"
	b.Emoji.Valid = true
	assert.Equal(t, "🛒 Products", b.Label())
}
