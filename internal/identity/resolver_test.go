package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converse-demo/converse/internal/models"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{token: "U123", want: "U123"},
		{token: "<@U123>!!", want: "U123"},
		{token: " @U0A1B2C3 ", want: "U0A1B2C3"},
		{token: "U-12_3", want: "U123"},
		{token: "***", want: ""},
		{token: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := Sanitize(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Sanitize(got), "sanitizing twice must not change the result")
		})
	}
}

func TestResolve(t *testing.T) {
	pool := []models.Participant{
		{ID: "U111", RealName: "Ada Lovelace"},
		{ID: "U222", RealName: "Grace Hopper"},
	}

	t.Run("mention syntax resolves", func(t *testing.T) {
		p, err := Resolve("<@U222>", pool)
		require.NoError(t, err)
		assert.Equal(t, "Grace Hopper", p.RealName)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := Resolve("<@U123>!!", pool)
		assert.ErrorIs(t, err, models.ErrIdentityNotFound)
	})

	t.Run("no fuzzy matching", func(t *testing.T) {
		_, err := Resolve("u111", pool)
		assert.ErrorIs(t, err, models.ErrIdentityNotFound)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := Resolve("!!", pool)
		assert.ErrorIs(t, err, models.ErrIdentityNotFound)
	})
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []string{"U1", "U2"}, IDs([]models.Participant{{ID: "U1"}, {ID: "U2"}}))
	assert.Empty(t, IDs(nil))
}
