package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/paydesk/internal/common"
)

// SealResetCode binds a recovery code to a fresh opaque token and returns
// the value to persist as the user's reset token: "<token>$<sha256(token+code)>".
// The code itself is never stored.
func SealResetCode(code string) (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}
	return token + "$" + digest(token, code), nil
}

// MatchResetCode reports whether code is the one sealed into sealed.
func MatchResetCode(sealed, code string) bool {
	token, want, ok := strings.Cut(sealed, "$")
	if !ok || token == "" {
		return false
	}
	got := digest(token, code)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func digest(token, code string) string {
	sum := sha256.Sum256([]byte(token + code))
	return hex.EncodeToString(sum[:])
}
