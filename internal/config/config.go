package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Currency CurrencyConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LLMConfig holds model collaborator settings.
type LLMConfig struct {
	APIKeyEnv string
	APIKey    string
	Model     string
	Timeout   time.Duration
}

// CurrencyConfig holds rate provider and cache settings.
type CurrencyConfig struct {
	Home        string
	APIKeyEnv   string
	APIKey      string
	ProviderURL string
	CacheTTL    time.Duration
	Timeout     time.Duration
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string
	LogPath    string
}

// ResolveAPIKey returns the LLM API key, preferring the environment.
func (c LLMConfig) ResolveAPIKey() string {
	if key := os.Getenv(c.APIKeyEnv); key != "" {
		return key
	}
	return c.APIKey
}

// ResolveAPIKey returns the rate provider API key, preferring the environment.
func (c CurrencyConfig) ResolveAPIKey() string {
	if key := os.Getenv(c.APIKeyEnv); key != "" {
		return key
	}
	return c.APIKey
}

// Load reads configuration from file and env. Env var overrides use prefix BUDGETBUDDY_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "budgetbuddy", "budgetbuddy.db"))
	v.SetDefault("llm.api_key_env", "GOOGLE_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-1.5-pro-latest")
	v.SetDefault("llm.timeout", "8s")
	v.SetDefault("currency.home", "USD")
	v.SetDefault("currency.api_key_env", "EXCHANGE_API_KEY")
	v.SetDefault("currency.api_key", "")
	v.SetDefault("currency.provider_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("currency.cache_ttl", "1h")
	v.SetDefault("currency.timeout", "5s")
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.log_path", filepath.Join(os.Getenv("HOME"), ".local", "share", "budgetbuddy", "budgetbuddy.log"))

	v.SetConfigType("toml")

	cfgPath := os.Getenv("BUDGETBUDDY_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "budgetbuddy"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BUDGETBUDDY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Currency.Home = strings.ToUpper(strings.TrimSpace(c.Currency.Home))
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// The API keys are stored in plain text; prefer env vars for secrets.
func Save(cfg Config) error {
	path := os.Getenv("BUDGETBUDDY_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "budgetbuddy", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.api_key", cfg.LLM.APIKey)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("llm.timeout", cfg.LLM.Timeout.String())
	v.Set("currency.home", cfg.Currency.Home)
	v.Set("currency.api_key_env", cfg.Currency.APIKeyEnv)
	v.Set("currency.api_key", cfg.Currency.APIKey)
	v.Set("currency.provider_url", cfg.Currency.ProviderURL)
	v.Set("currency.cache_ttl", cfg.Currency.CacheTTL.String())
	v.Set("currency.timeout", cfg.Currency.Timeout.String())
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.log_path", cfg.UI.LogPath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
