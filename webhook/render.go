package webhook

import (
	"sort"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/chatforge/chatforge/menu"
	"github.com/chatforge/chatforge/navigation"
)

// Outbound is a fully prepared render instruction: text plus an optional
// inline keyboard, ready for the transport worker to deliver.
type Outbound struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// RenderEffect turns an engine effect into an outbound instruction.
// Delegated effects render an acknowledgement; the handoff itself happens
// elsewhere.
func RenderEffect(eff navigation.Effect) Outbound {
	switch eff.Kind {
	case navigation.EffectText:
		return Outbound{Text: eff.Text}
	case navigation.EffectMenu:
		return Outbound{
			Text:   menuCaption(eff.Menu),
			Markup: menuMarkup(eff.Menu, eff.Buttons),
		}
	case navigation.EffectDelegate:
		return Outbound{Text: "One moment..."}
	}
	return Outbound{Text: navigation.FallbackText}
}

func menuCaption(m *menu.Menu) string {
	if m == nil {
		return navigation.FallbackText
	}
	if m.Description.Valid && m.Description.String != "" {
		return m.Name + "\n\n" + m.Description.String
	}
	return m.Name
}

// menuMarkup lays the buttons out as an inline keyboard grid honoring their
// (row, column, sort key) order, with a back row appended for non-root menus.
func menuMarkup(m *menu.Menu, buttons []menu.Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	ordered := make([]menu.Button, len(buttons))
	copy(ordered, buttons)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.SortKey < b.SortKey
	})

	var rows [][]tele.InlineButton
	var current []tele.InlineButton
	lastRow := -1
	for _, b := range ordered {
		if b.Row != lastRow && len(current) > 0 {
			rows = append(rows, current)
			current = nil
		}
		lastRow = b.Row
		current = append(current, inlineButton(markup, b))
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}

	if m != nil && !m.IsRoot() {
		rows = append(rows, []tele.InlineButton{
			*markup.Data("⬅️ Back", cbBack).Inline(),
		})
	}

	markup.InlineKeyboard = rows
	return markup
}

func inlineButton(markup *tele.ReplyMarkup, b menu.Button) tele.InlineButton {
	if b.Kind == menu.ButtonLink {
		if action, err := b.DecodeAction(); err == nil && action.Kind == menu.ActionOpenLink {
			return *markup.URL(b.Label(), action.URL).Inline()
		}
	}
	return *markup.Data(b.Label(), cbNavigate, navPayload(b.MenuID, b.ID)).Inline()
}

// isBackText matches the textual back affordance for clients that send it as
// a plain message instead of a callback.
func isBackText(text string) bool {
	t := strings.TrimSpace(strings.TrimPrefix(text, "⬅️"))
	return strings.EqualFold(t, "back") || text == "/back"
}
