package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTPListenAddr)
	assert.Equal(t, 4, cfg.MaxFallbacks)
	assert.Equal(t, "talk to agent", cfg.AgentIntent)
	assert.Equal(t, time.Hour, cfg.HoursOffset)
	assert.Equal(t, "en", cfg.DialogflowLanguage)
	assert.Len(t, cfg.BusinessHours.Intervals, 2)
	assert.True(t, cfg.BusinessHours.Closed[time.Saturday])
	assert.True(t, cfg.BusinessHours.Closed[time.Sunday])
	assert.Empty(t, cfg.BotCredentials)
}

func TestLoadBotCredentials(t *testing.T) {
	t.Setenv("DIALOGFLOW_BOTS", "bot_a, bot_b")
	t.Setenv("bot_a", `{"project_id":"a"}`)
	t.Setenv("bot_b", `{"project_id":"b"}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, `{"project_id":"a"}`, cfg.BotCredentials["bot_a"])
	assert.Equal(t, `{"project_id":"b"}`, cfg.BotCredentials["bot_b"])
}

func TestLoadRejectsMissingBotCredential(t *testing.T) {
	t.Setenv("DIALOGFLOW_BOTS", "bot_missing")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MAX_FALLBACKS", "zero")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("MAX_FALLBACKS", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadHours(t *testing.T) {
	t.Setenv("BUSINESS_HOURS", "13:00-09:00")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadConfidenceThreshold(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "1.5")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadCustomOffset(t *testing.T) {
	t.Setenv("BUSINESS_HOURS_OFFSET", "0s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.HoursOffset)
}
