package authoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/menu"
)

func TestParseActionInput(t *testing.T) {
	action, reply := parseActionInput("message Hello there")
	require.Empty(t, reply)
	assert.Equal(t, menu.ActionSendMessage, action.Kind)
	assert.Equal(t, "Hello there", action.Text)

	action, reply = parseActionInput("url https://example.com/shop")
	require.Empty(t, reply)
	assert.Equal(t, menu.ActionOpenLink, action.Kind)
	assert.Equal(t, "https://example.com/shop", action.URL)

	action, reply = parseActionInput("menu 42")
	require.Empty(t, reply)
	assert.Equal(t, menu.ActionNavigate, action.Kind)
	assert.Equal(t, int64(42), action.TargetMenuID)

	// Kind matching is case-insensitive.
	_, reply = parseActionInput("MESSAGE hi")
	assert.Empty(t, reply)
}

func TestParseActionInputCorrections(t *testing.T) {
	cases := []string{
		"",
		"message",
		"url not-a-url",
		"url ftp://example.com",
		"menu abc",
		"menu",
		"teleport somewhere",
	}
	for _, raw := range cases {
		_, reply := parseActionInput(raw)
		assert.NotEmpty(t, reply, "input %q should produce corrective text", raw)
	}
}
