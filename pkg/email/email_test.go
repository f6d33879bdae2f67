package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "vendor@acme.fr", Normalize("  Vendor@ACME.fr "))
	assert.Equal(t, "", Normalize("   "))
}

func TestIsWellFormed(t *testing.T) {
	t.Run("accepts plain addresses", func(t *testing.T) {
		assert.True(t, IsWellFormed("vendor@acme.fr"))
		assert.True(t, IsWellFormed("jean.dupont+test@sub.acme.fr"))
	})

	t.Run("rejects structural garbage", func(t *testing.T) {
		assert.False(t, IsWellFormed("no-at-sign"))
		assert.False(t, IsWellFormed("@acme.fr"))
		assert.False(t, IsWellFormed("vendor@"))
		assert.False(t, IsWellFormed("vendor@nodot"))
		assert.False(t, IsWellFormed("ven dor@acme.fr"))
	})
}

// DeriveNameFromEmail feeds TemplateData.Name directly, so it returns exactly
// one greeting string.
func TestDeriveNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jean.dupont@acme.fr", "Jean"},
		{"marie@shop.fr", "Marie"},
		{"ops-team@tradegate.fr", "Ops"},
		{"_@acme.fr", "User"},
		{"", "User"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveNameFromEmail(tt.email), tt.email)
	}
}
