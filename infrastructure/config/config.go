package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Driver backends
const (
	DriverPlaywright = "playwright"
	DriverSelenium   = "selenium"
	DriverMemory     = "memory"
)

// Config holds runtime settings read from the environment
type Config struct {
	BaseURL  string
	Driver   string
	Browser  string
	Headless bool
	SlowMo   time.Duration

	NavigationTimeout  time.Duration
	AppearTimeout      time.Duration
	InteractiveTimeout time.Duration
	ProbeTimeout       time.Duration
	ActionTimeout      time.Duration

	RetryAttempts int

	StateDir         string
	ChromeDriverPath string
	ChromeBinaryPath string

	LogLevel logrus.Level

	LoginUser     string
	LoginPassword string
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		BaseURL:            "http://localhost:8080",
		Driver:             DriverPlaywright,
		Browser:            "chromium",
		Headless:           true,
		NavigationTimeout:  30 * time.Second,
		AppearTimeout:      5 * time.Second,
		InteractiveTimeout: 5 * time.Second,
		ProbeTimeout:       time.Second,
		ActionTimeout:      5 * time.Second,
		RetryAttempts:      1,
		LogLevel:           logrus.InfoLevel,
	}
}

// Load reads .env (optional) and the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	millis := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid millisecond value %q", key, v))
			return
		}
		*dst = time.Duration(n) * time.Millisecond
	}

	str("BASE_URL", &cfg.BaseURL)
	str("DRIVER", &cfg.Driver)
	str("BROWSER", &cfg.Browser)
	str("STATE_DIR", &cfg.StateDir)
	str("CHROMEDRIVER_PATH", &cfg.ChromeDriverPath)
	str("CHROME_BINARY_PATH", &cfg.ChromeBinaryPath)
	str("LOGIN_USER", &cfg.LoginUser)
	str("LOGIN_PASSWORD", &cfg.LoginPassword)

	if v := strings.TrimSpace(getenv("HEADLESS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HEADLESS: invalid boolean %q", v))
		} else {
			cfg.Headless = b
		}
	}

	millis("SLOW_MO_MS", &cfg.SlowMo)
	millis("NAV_TIMEOUT_MS", &cfg.NavigationTimeout)
	millis("APPEAR_TIMEOUT_MS", &cfg.AppearTimeout)
	millis("INTERACTIVE_TIMEOUT_MS", &cfg.InteractiveTimeout)
	millis("PROBE_TIMEOUT_MS", &cfg.ProbeTimeout)
	millis("ACTION_TIMEOUT_MS", &cfg.ActionTimeout)

	if v := strings.TrimSpace(getenv("RETRY_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS: invalid integer %q", v))
		} else {
			cfg.RetryAttempts = n
		}
	}

	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		} else {
			cfg.LogLevel = lvl
		}
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPlaywright, DriverSelenium, DriverMemory:
	default:
		return fmt.Errorf("unsupported driver %q (want %s, %s or %s)", c.Driver, DriverPlaywright, DriverSelenium, DriverMemory)
	}
	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("unsupported browser %q", c.Browser)
	}
	if c.Driver == DriverSelenium && c.Browser != "chromium" {
		return fmt.Errorf("selenium driver only supports chromium, got %q", c.Browser)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("BASE_URL must be an http(s) url, got %q", c.BaseURL)
	}
	if c.NavigationTimeout <= 0 || c.AppearTimeout <= 0 || c.InteractiveTimeout <= 0 || c.ProbeTimeout <= 0 || c.ActionTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	return nil
}
