package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	EngineConfig  *EngineConfig
	LoginConfig   *LoginConfig
}

type AppConfig struct {
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`
	LogFile      string `envconfig:"LOG_FILE"`
	TraceEnabled bool   `envconfig:"TRACE_ENABLED" default:"false"`
}

type BrowserConfig struct {
	Headless    bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo      int    `envconfig:"BROWSER_SLOW_MO" default:"100"`
	Timeout     int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir string `envconfig:"BROWSER_USER_DATA_DIR"`
}

type EngineConfig struct {
	ProbeTimeout        time.Duration `envconfig:"ENGINE_PROBE_TIMEOUT" default:"2s"`
	LoadTimeout         time.Duration `envconfig:"ENGINE_LOAD_TIMEOUT" default:"15s"`
	TeardownStepTimeout time.Duration `envconfig:"ENGINE_TEARDOWN_STEP_TIMEOUT" default:"5s"`
	AutoConsent         bool          `envconfig:"ENGINE_AUTO_CONSENT" default:"true"`
}

type LoginConfig struct {
	Username string `envconfig:"LOGIN_USERNAME"`
	Password string `envconfig:"LOGIN_PASSWORD"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}

// Default returns the configuration with every default applied and no
// environment consulted.
func Default() *Config {
	return &Config{
		AppConfig: &AppConfig{LogLevel: "info"},
		BrowserConfig: &BrowserConfig{
			SlowMo:  100,
			Timeout: 30000,
		},
		EngineConfig: &EngineConfig{
			ProbeTimeout:        2 * time.Second,
			LoadTimeout:         15 * time.Second,
			TeardownStepTimeout: 5 * time.Second,
			AutoConsent:         true,
		},
		LoginConfig: &LoginConfig{},
	}
}
