package tenant

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestCipherRoundtrip(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	token := "7000000001:AAFakeBotTokenForTests-12345"
	blob, err := c.Encrypt(token)
	require.NoError(t, err)
	assert.NotContains(t, blob, token)

	got, err := c.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	// Fresh nonce per call: same plaintext never repeats on the wire.
	again, err := c.Encrypt(token)
	require.NoError(t, err)
	assert.NotEqual(t, blob, again)
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	_, err := NewCipher("not-base-64!!!")
	assert.ErrorIs(t, err, ErrCipherKey)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewCipher(short)
	assert.ErrorIs(t, err, ErrCipherKey)
}

func TestCipherDecryptRejectsTampering(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	blob, err := c.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)

	_, err = c.Decrypt("AAAA")
	assert.Error(t, err)

	other, err := NewCipher(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	_, err = other.Decrypt(blob)
	assert.Error(t, err)
}

func TestLimitsFor(t *testing.T) {
	free := LimitsFor(TierFree)
	assert.Equal(t, 3, free.MaxMenus)
	assert.Equal(t, 8, free.MaxButtonsPerMenu)

	basic := LimitsFor(TierBasic)
	assert.Equal(t, -1, basic.MaxMenus)

	// Unknown tiers fall back to the free caps.
	unknown := LimitsFor(Tier("enterprise-trial"))
	assert.Equal(t, free, unknown)

	assert.True(t, allows(-1, 10_000))
	assert.True(t, allows(3, 2))
	assert.False(t, allows(3, 3))
}
