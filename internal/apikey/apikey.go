// Package apikey generates and masks issued API credentials.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// prefix tags every issued identifier and secret.
const prefix = "es_"

// secretBytes is the entropy of an issued secret (hex-encoded on output).
const secretBytes = 10

// NewKeyID derives a public, non-secret identifier from the project name.
// The result is safe to log, display and index: es_<name>_<digits>.
func NewKeyID(projectName string) string {
	cleaned := strings.Builder{}
	for _, r := range strings.ToLower(projectName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cleaned.WriteRune(r)
		}
		if cleaned.Len() == 8 {
			break
		}
	}
	stamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	return prefix + cleaned.String() + "_" + stamp[len(stamp)-6:]
}

// NewKey generates a fresh API secret: es_<hex>.
func NewKey() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("apikey: generate: %w", err)
	}
	return prefix + hex.EncodeToString(b), nil
}

// Mask hides the middle of a key for display, keeping the first and last
// four characters. Short keys are masked entirely.
func Mask(key string) string {
	if len(key) <= 10 {
		return "••••••••••"
	}
	return key[:4] + "••••••" + key[len(key)-4:]
}
