package store

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

const (
	gameCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	gameCodeHalf     = 6
	gameCodeAttempts = 5
)

// newGameCode returns a code like "K3FQ9Z-WB2M7D".
func newGameCode() (string, error) {
	b := make([]byte, gameCodeHalf*2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(b) + 1)
	for i, v := range b {
		if i == gameCodeHalf {
			sb.WriteByte('-')
		}
		sb.WriteByte(gameCodeAlphabet[int(v)%len(gameCodeAlphabet)])
	}
	return sb.String(), nil
}

// NormalizeGameCode trims and upper-cases a code typed by a player.
func NormalizeGameCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// newShareToken returns 32 random hex characters.
func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
