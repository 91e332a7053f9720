package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDefaultsMatchDefault(t *testing.T) {
	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, Default().EngineConfig, conf.EngineConfig)
	assert.Equal(t, Default().BrowserConfig.Timeout, conf.BrowserConfig.Timeout)
}

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("ENGINE_PROBE_TIMEOUT", "750ms")
	t.Setenv("ENGINE_AUTO_CONSENT", "false")
	t.Setenv("LOGIN_USERNAME", "jane@example.com")
	t.Setenv("LOGIN_PASSWORD", "s3cret")

	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, conf.EngineConfig.ProbeTimeout)
	assert.False(t, conf.EngineConfig.AutoConsent)
	assert.Equal(t, "jane@example.com", conf.LoginConfig.Username)
	assert.Equal(t, "s3cret", conf.LoginConfig.Password)
}

func TestGetConfigRejectsMalformedDuration(t *testing.T) {
	t.Setenv("ENGINE_LOAD_TIMEOUT", "soon")

	_, err := GetConfig()
	assert.ErrorContains(t, err, "read config from env vars")
}
