package webhook

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback keys routed by the dispatcher. The wire format is the inline
// keyboard convention "\f<key>|<payload>".
const (
	cbNavigate = "nav"
	cbBack     = "back"
)

// navPayload encodes the press coordinates: the button pressed and the menu
// it was rendered on. Carrying the menu id lets the engine reject stale
// callbacks from keyboards rendered before an authoring change.
func navPayload(menuID, buttonID int64) string {
	return fmt.Sprintf("%d:%d", menuID, buttonID)
}

func parseNavPayload(payload string) (menuID, buttonID int64, err error) {
	left, right, ok := strings.Cut(payload, ":")
	if !ok {
		return 0, 0, fmt.Errorf("callback payload %q: missing separator", payload)
	}
	menuID, err = strconv.ParseInt(left, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("callback payload %q: %w", payload, err)
	}
	buttonID, err = strconv.ParseInt(right, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("callback payload %q: %w", payload, err)
	}
	return menuID, buttonID, nil
}

// parseCallbackData splits raw callback data into its key and payload.
func parseCallbackData(data string) (key, payload string) {
	raw := strings.TrimPrefix(data, "\f")
	raw = strings.TrimPrefix(raw, "\\f")
	key, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}
