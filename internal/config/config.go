// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Humanoid HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
	Wizard   WizardConfig   `mapstructure:"wizard" yaml:"wizard"`
}

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BrowserConfig controls the Chrome process and its stealth posture.
type BrowserConfig struct {
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	BinaryPath   string   `mapstructure:"binary_path" yaml:"binary_path"`
	Args         []string `mapstructure:"args" yaml:"args"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	UserAgent    string   `mapstructure:"user_agent" yaml:"user_agent"`
}

// NetworkConfig holds the bounded-wait policy applied to page interactions.
type NetworkConfig struct {
	// NavigationTimeout bounds a full page navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ElementTimeout bounds a single element readiness wait.
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	// EnablePollTimeout bounds the wait for an enable-gated control.
	EnablePollTimeout time.Duration `mapstructure:"enable_poll_timeout" yaml:"enable_poll_timeout"`
}

// HumanoidConfig controls the behavioral camouflage layer.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Seed fixes the RNG for reproducible runs; zero means time-seeded.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// WizardConfig carries the target URL and the applicant profile the form is
// filled with. Every literal value the wizard types or selects lives here, so
// the orchestrator itself is a pure function of context plus page state.
type WizardConfig struct {
	StartURL string        `mapstructure:"start_url" yaml:"start_url"`
	Profile  ProfileConfig `mapstructure:"profile" yaml:"profile"`
}

// ProfileConfig enumerates the applicant field values supplied to the form.
type ProfileConfig struct {
	FirstName       string `mapstructure:"first_name" yaml:"first_name"`
	LastName        string `mapstructure:"last_name" yaml:"last_name"`
	DateOfBirth     string `mapstructure:"date_of_birth" yaml:"date_of_birth"` // digits only, the page formats it
	GaragingAddress string `mapstructure:"garaging_address" yaml:"garaging_address"`
	Email           string `mapstructure:"email" yaml:"email"`
	Phone           string `mapstructure:"phone" yaml:"phone"`
	AnnualMiles     string `mapstructure:"annual_miles" yaml:"annual_miles"`
	OwnershipLength string `mapstructure:"ownership_length" yaml:"ownership_length"`
	Employment      string `mapstructure:"employment" yaml:"employment"`
	CurrentCarrier  string `mapstructure:"current_carrier" yaml:"current_carrier"`
}

// SetDefaults registers every configuration default with viper. Call before
// viper.Unmarshal so a missing config file still yields a runnable setup.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "quotehound")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)

	v.SetDefault("network.navigation_timeout", 90*time.Second)
	v.SetDefault("network.element_timeout", 30*time.Second)
	v.SetDefault("network.enable_poll_timeout", 10*time.Second)

	v.SetDefault("humanoid.enabled", true)

	v.SetDefault("wizard.start_url", "https://www.thezebra.com/insurance/car/prefill/start/")
	v.SetDefault("wizard.profile.first_name", "alex")
	v.SetDefault("wizard.profile.last_name", "rivers")
	v.SetDefault("wizard.profile.date_of_birth", "11112000")
	v.SetDefault("wizard.profile.garaging_address", "3740 LAKE LYNN DR")
	v.SetDefault("wizard.profile.email", "alex.rivers@example.com")
	v.SetDefault("wizard.profile.phone", "2019756595")
	v.SetDefault("wizard.profile.annual_miles", "1000")
	v.SetDefault("wizard.profile.ownership_length", "1 month - 1 year")
	v.SetDefault("wizard.profile.employment", "Not employed within the last 12 months")
	v.SetDefault("wizard.profile.current_carrier", "other")
}

// Validate rejects configurations the run loop cannot work with.
func (c *Config) Validate() error {
	if c.Wizard.StartURL == "" {
		return fmt.Errorf("wizard.start_url must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Network.ElementTimeout <= 0 {
		return fmt.Errorf("network.element_timeout must be positive")
	}
	return nil
}
