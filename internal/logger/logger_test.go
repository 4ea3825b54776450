package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs_RedactsCredentials(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("configured", "provider", "gemini", "api_key", "sk-secret", "input_tokens", 12)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "gemini", fields["provider"])
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.EqualValues(t, 12, fields["input_tokens"])
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	assert.Equal(t, []interface{}{"a", 1, "dangling"}, out)
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core)).With("request_id", "r-1")

	log.Warn("slow call")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r-1", logs.All()[0].ContextMap()["request_id"])
}

func TestIsRedactKey(t *testing.T) {
	assert.True(t, isRedactKey("token"))
	assert.True(t, isRedactKey("access_token"))
	assert.True(t, isRedactKey("gemini_api_key"))
	assert.False(t, isRedactKey("input_tokens"))
	assert.False(t, isRedactKey("purpose"))
}
