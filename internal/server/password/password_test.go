package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{name: "all classes, 8 chars", password: "Abc123!@", want: ""},
		{name: "too short", password: "Abc12!", want: ReasonTooShort},
		{name: "short beats missing classes", password: "abc", want: ReasonTooShort},
		{name: "no lowercase", password: "ABCDEFG1!", want: ReasonNoLower},
		{name: "no uppercase", password: "abcdefg1!", want: ReasonNoUpper},
		{name: "no digit", password: "Abcdefgh!", want: ReasonNoDigit},
		{name: "no special", password: "Abcdefg12", want: ReasonNoSpecial},
		{name: "empty", password: "", want: ReasonTooShort},
		{name: "72 bytes", password: "Abc123!@" + strings.Repeat("x", 64), want: ""},
		{name: "73 bytes", password: "Abc123!@" + strings.Repeat("x", 65), want: ReasonTooLong},
		{name: "long beats missing classes", password: strings.Repeat("a", 100), want: ReasonTooLong},
		{name: "multibyte counted in bytes", password: "Abc123!@" + strings.Repeat("é", 33), want: ReasonTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.password))
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("Abc123!@")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc123!@", hash)

	assert.True(t, h.Verify(hash, "Abc123!@"))
	assert.False(t, h.Verify(hash, "Abc123!#"))
	assert.False(t, h.Verify("not-a-hash", "Abc123!@"))
}

func TestBcryptHasher_TooLong(t *testing.T) {
	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	_, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(string(long))
	assert.Error(t, err)
}

func TestValidPasswordsAlwaysHash(t *testing.T) {
	pw := "Abc123!@" + strings.Repeat("x", MaxBytes-8)
	require.Empty(t, Validate(pw))

	_, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(pw)
	assert.NoError(t, err)
}
