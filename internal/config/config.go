package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "LEXFORUM"
	defaultAPIBaseURL    = "http://localhost:8080"
	defaultStoragePath   = "lexforum-client.db"
	defaultJournalPath   = "lexforum-journal.db"
	defaultLogLevel      = "info"
	defaultDevAddress    = "127.0.0.1:8080"
	defaultNetworkMillis = 15000
	defaultUndoMillis    = 5000
	defaultAutosaveDelay = 800
)

// AppConfig captures runtime configuration for the client.
type AppConfig struct {
	APIBaseURL     string
	SessionToken   string
	StoragePath    string
	JournalPath    string
	LogLevel       string
	DevAddress     string
	NetworkTimeout time.Duration
	UndoTTL        time.Duration
	AutosaveDelay  time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("storage.path", defaultStoragePath)
	configViper.SetDefault("journal.path", defaultJournalPath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("dev.address", defaultDevAddress)
	configViper.SetDefault("network.timeout_ms", defaultNetworkMillis)
	configViper.SetDefault("undo.ttl_ms", defaultUndoMillis)
	configViper.SetDefault("autosave.delay_ms", defaultAutosaveDelay)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		APIBaseURL:     configViper.GetString("api.base_url"),
		SessionToken:   configViper.GetString("api.session_token"),
		StoragePath:    configViper.GetString("storage.path"),
		JournalPath:    configViper.GetString("journal.path"),
		LogLevel:       configViper.GetString("log.level"),
		DevAddress:     configViper.GetString("dev.address"),
		NetworkTimeout: time.Duration(configViper.GetInt64("network.timeout_ms")) * time.Millisecond,
		UndoTTL:        time.Duration(configViper.GetInt64("undo.ttl_ms")) * time.Millisecond,
		AutosaveDelay:  time.Duration(configViper.GetInt64("autosave.delay_ms")) * time.Millisecond,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if strings.TrimSpace(c.StoragePath) == "" {
		return fmt.Errorf("storage.path is required")
	}
	if strings.TrimSpace(c.JournalPath) == "" {
		return fmt.Errorf("journal.path is required")
	}
	if c.NetworkTimeout <= 0 {
		return fmt.Errorf("network.timeout_ms must be positive")
	}
	if c.UndoTTL <= 0 {
		return fmt.Errorf("undo.ttl_ms must be positive")
	}
	if c.AutosaveDelay <= 0 {
		return fmt.Errorf("autosave.delay_ms must be positive")
	}
	return nil
}
