package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 5*time.Second, cfg.ActionTimeout)
	assert.NotEqual(t, cfg.ProbeTimeout, cfg.AppearTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"BASE_URL":               "https://staging.example.com",
		"DRIVER":                 "memory",
		"HEADLESS":               "false",
		"SLOW_MO_MS":             "250",
		"NAV_TIMEOUT_MS":         "10000",
		"APPEAR_TIMEOUT_MS":      "2000",
		"INTERACTIVE_TIMEOUT_MS": "3000",
		"PROBE_TIMEOUT_MS":       "500",
		"ACTION_TIMEOUT_MS":      "1500",
		"RETRY_ATTEMPTS":         "3",
		"LOG_LEVEL":              "debug",
		"LOGIN_USER":             "user@example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com", cfg.BaseURL)
	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowMo)
	assert.Equal(t, 10*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 2*time.Second, cfg.AppearTimeout)
	assert.Equal(t, 3*time.Second, cfg.InteractiveTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.ActionTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "user@example.com", cfg.LoginUser)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad timeout", map[string]string{"NAV_TIMEOUT_MS": "soon"}},
		{"negative timeout", map[string]string{"PROBE_TIMEOUT_MS": "-5"}},
		{"zero timeout", map[string]string{"APPEAR_TIMEOUT_MS": "0"}},
		{"zero action timeout", map[string]string{"ACTION_TIMEOUT_MS": "0"}},
		{"bad bool", map[string]string{"HEADLESS": "maybe"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"unknown driver", map[string]string{"DRIVER": "puppeteer"}},
		{"unknown browser", map[string]string{"BROWSER": "netscape"}},
		{"selenium firefox", map[string]string{"DRIVER": "selenium", "BROWSER": "firefox"}},
		{"relative base", map[string]string{"BASE_URL": "localhost:8080"}},
		{"no attempts", map[string]string{"RETRY_ATTEMPTS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.env))
			assert.Error(t, err)
		})
	}
}
