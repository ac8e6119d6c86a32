package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a****@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "****", MaskEmail("no-at-sign"))
	assert.Equal(t, "", MaskEmail("  "))
}

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"email":            "bob@example.com",
		"unmatched_emails": []string{"carol@example.com"},
		"permission":       "edit",
		"":                 "dropped",
	})
	assert.Equal(t, "b****@example.com", out["email"])
	assert.Equal(t, []string{"c****@example.com"}, out["unmatched_emails"])
	assert.Equal(t, "edit", out["permission"])
	assert.Len(t, out, 3)
}
