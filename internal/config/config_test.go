// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultConfig unmarshals a fresh viper instance carrying only the registered
// defaults.
func defaultConfig(t *testing.T) Config {
	t.Helper()

	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestDefaultsProduceValidConfig(t *testing.T) {
	cfg := defaultConfig(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Humanoid.Enabled)

	assert.Equal(t, 90*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 30*time.Second, cfg.Network.ElementTimeout)
	assert.Equal(t, 10*time.Second, cfg.Network.EnablePollTimeout)

	assert.NotEmpty(t, cfg.Wizard.StartURL)
	assert.NotEmpty(t, cfg.Wizard.Profile.FirstName)
	assert.NotEmpty(t, cfg.Wizard.Profile.GaragingAddress)
	assert.NotEmpty(t, cfg.Wizard.Profile.DateOfBirth)
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	t.Run("EmptyStartURL", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Wizard.StartURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("PortOutOfRange", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())

		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("NonPositiveElementTimeout", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Network.ElementTimeout = 0
		assert.Error(t, cfg.Validate())
	})
}
