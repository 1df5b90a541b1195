package webhook

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/menu"
	"github.com/chatforge/chatforge/navigation"
)

func TestRenderEffectText(t *testing.T) {
	out := RenderEffect(navigation.Effect{Kind: navigation.EffectText, Text: "hi"})
	assert.Equal(t, "hi", out.Text)
	assert.Nil(t, out.Markup)
}

func TestRenderEffectMenuGrid(t *testing.T) {
	m := &menu.Menu{ID: 1, TenantID: 1, Name: "Home", IsActive: true}
	buttons := []menu.Button{
		mustButton(menu.Button{ID: 11, MenuID: 1, Text: "A", Row: 0, Column: 0},
			menu.Action{Kind: menu.ActionSendMessage, Text: "a"}),
		mustButton(menu.Button{ID: 12, MenuID: 1, Text: "B", Row: 0, Column: 1},
			menu.Action{Kind: menu.ActionSendMessage, Text: "b"}),
		mustButton(menu.Button{ID: 13, MenuID: 1, Text: "C", Row: 1, Column: 0},
			menu.Action{Kind: menu.ActionSendMessage, Text: "c"}),
	}

	out := RenderEffect(navigation.Effect{Kind: navigation.EffectMenu, Menu: m, Buttons: buttons})
	assert.Equal(t, "Home", out.Text)
	require.NotNil(t, out.Markup)
	// Two grid rows, no back row on a root menu.
	require.Len(t, out.Markup.InlineKeyboard, 2)
	assert.Len(t, out.Markup.InlineKeyboard[0], 2)
	assert.Len(t, out.Markup.InlineKeyboard[1], 1)
	assert.Equal(t, "A", out.Markup.InlineKeyboard[0][0].Text)
	assert.Contains(t, out.Markup.InlineKeyboard[0][0].Data, navPayload(1, 11))
}

func TestRenderEffectMenuBackRow(t *testing.T) {
	child := &menu.Menu{ID: 2, TenantID: 1, Name: "Products", IsActive: true,
		ParentID: sql.NullInt64{Int64: 1, Valid: true},
		Description: sql.NullString{String: "What we sell", Valid: true},
	}

	out := RenderEffect(navigation.Effect{Kind: navigation.EffectMenu, Menu: child})
	assert.Equal(t, "Products\n\nWhat we sell", out.Text)
	require.NotNil(t, out.Markup)
	// Empty button list still renders, with only the back row.
	require.Len(t, out.Markup.InlineKeyboard, 1)
	assert.Equal(t, cbBack, out.Markup.InlineKeyboard[0][0].Unique)
}

func TestRenderLinkButton(t *testing.T) {
	m := &menu.Menu{ID: 1, TenantID: 1, Name: "Home", IsActive: true}
	link := mustButton(menu.Button{ID: 14, MenuID: 1, Text: "Site", Kind: menu.ButtonLink},
		menu.Action{Kind: menu.ActionOpenLink, URL: "https://example.com"})

	out := RenderEffect(navigation.Effect{Kind: navigation.EffectMenu, Menu: m, Buttons: []menu.Button{link}})
	require.Len(t, out.Markup.InlineKeyboard, 1)
	assert.Equal(t, "https://example.com", out.Markup.InlineKeyboard[0][0].URL)
}

func TestIsBackText(t *testing.T) {
	assert.True(t, isBackText("/back"))
	assert.True(t, isBackText("Back"))
	assert.True(t, isBackText("⬅️ Back"))
	assert.False(t, isBackText("/start"))
	assert.False(t, isBackText("backpack"))
}

func mustButton(b menu.Button, action menu.Action) menu.Button {
	raw, err := menu.EncodeAction(action)
	if err != nil {
		panic(err)
	}
	b.ActionJSON = raw
	b.IsActive = true
	return b
}
