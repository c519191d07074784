package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID("pay_")
	assert.True(t, strings.HasPrefix(id, "pay_"))
	assert.Len(t, id, len("pay_")+16)

	for _, c := range id[len("pay_"):] {
		assert.Contains(t, idAlphabet, string(c))
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		next := GenerateID("order_")
		assert.False(t, seen[next], "duplicate id generated")
		seen[next] = true
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey("key_test")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "key_test_"))
	assert.Len(t, key, len("key_test_")+64)
}

func TestGenerateWebhookSecret(t *testing.T) {
	secret, err := GenerateWebhookSecret()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret, "whsec_"))
}
