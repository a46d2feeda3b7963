package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLeadCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateLeadCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(leadCodeAlphabet, ch), "unexpected character %q", ch)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should be effectively unique")
}

func TestValidateStructReportsFieldAndRule(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
		Zip   string `validate:"required,len=5,numeric"`
	}

	err := ValidateStruct(form{Email: "nope", Zip: "123"})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "zip must be exactly 5 characters")

	assert.NoError(t, ValidateStruct(form{Email: "a@b.co", Zip: "34102"}))
}
