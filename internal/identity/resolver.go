// Package identity maps generated author tokens back to channel participants.
package identity

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/converse-demo/converse/internal/models"
)

// Sanitize strips every character that is not a letter or a digit, so
// "<@U123>!!" becomes "U123".
func Sanitize(token string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, token)
}

// Resolve exact-matches the sanitized token against participant ids. There is
// no fuzzy fallback.
func Resolve(token string, pool []models.Participant) (models.Participant, error) {
	id := Sanitize(token)
	if id == "" {
		return models.Participant{}, fmt.Errorf("%w: empty author token %q", models.ErrIdentityNotFound, token)
	}

	for _, p := range pool {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Participant{}, fmt.Errorf("%w: %q", models.ErrIdentityNotFound, id)
}

// IDs returns the participant ids in pool order
func IDs(pool []models.Participant) []string {
	ids := make([]string, 0, len(pool))
	for _, p := range pool {
		ids = append(ids, p.ID)
	}
	return ids
}
