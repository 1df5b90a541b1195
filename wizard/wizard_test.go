package wizard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateExpired(t *testing.T) {
	now := time.Now()
	st := State{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, st.Expired(now))
	assert.True(t, st.Expired(now.Add(2*time.Minute)))

	// Zero deadline never expires.
	assert.False(t, (&State{}).Expired(now))
}

func TestDecodePayload(t *testing.T) {
	draft := ButtonDraft{MenuID: 3, Text: "Buy"}
	raw, err := json.Marshal(draft)
	require.NoError(t, err)

	st := State{Step: StepButtonAction, Payload: raw}
	var got ButtonDraft
	require.NoError(t, st.DecodePayload(&got))
	assert.Equal(t, draft, got)

	// Empty payloads decode to the zero value.
	var empty MenuDraft
	require.NoError(t, (&State{}).DecodePayload(&empty))
	assert.Equal(t, MenuDraft{}, empty)
}
