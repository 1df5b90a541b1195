package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavPayloadRoundtrip(t *testing.T) {
	payload := navPayload(42, 7)
	menuID, buttonID, err := parseNavPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(42), menuID)
	assert.Equal(t, int64(7), buttonID)
}

func TestParseNavPayloadRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "42", "a:b", "42:", ":7", "1:2:3"} {
		_, _, err := parseNavPayload(raw)
		assert.Error(t, err, "payload %q", raw)
	}
}

func TestParseCallbackData(t *testing.T) {
	key, payload := parseCallbackData("\fnav|42:7")
	assert.Equal(t, cbNavigate, key)
	assert.Equal(t, "42:7", payload)

	key, payload = parseCallbackData("back")
	assert.Equal(t, cbBack, key)
	assert.Empty(t, payload)

	key, payload = parseCallbackData("\fback|")
	assert.Equal(t, cbBack, key)
	assert.Empty(t, payload)
}
