package config

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Users     []UserConfig    `yaml:"users" mapstructure:"users"`
	Alerts    AlertsConfig    `yaml:"alerts" mapstructure:"alerts"`
	Summary   SummaryConfig   `yaml:"summary" mapstructure:"summary"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Phone     PhoneConfig     `yaml:"phone" mapstructure:"phone"`
}

// StoreConfig selects the durable backend for the ledger document.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, redis, memory
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP command surface.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// SourcesConfig maps source names to spreadsheet export URLs. Each specialist
// reads the source named after them; Master names the consolidated feed.
type SourcesConfig struct {
	URLs          map[string]string `yaml:"urls" mapstructure:"urls"`
	Master        string            `yaml:"master" mapstructure:"master"`
	TimeoutSecs   int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent     string            `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSecond float64           `yaml:"rate_per_second" mapstructure:"rate_per_second"`

	// A source that fails FailureThreshold times in a row is skipped for
	// ResetTimeoutSecs.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// UserConfig is one allow-list entry. PasswordHash (bcrypt) takes precedence
// over Password when both are set.
type UserConfig struct {
	Username     string `yaml:"username" mapstructure:"username"`
	Password     string `yaml:"password" mapstructure:"password"`
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
	Role         string `yaml:"role" mapstructure:"role"`
	Source       string `yaml:"source" mapstructure:"source"`
}

// AlertsConfig tunes anomaly detection and delivery.
type AlertsConfig struct {
	ThresholdSecs     int    `yaml:"threshold_secs" mapstructure:"threshold_secs"`
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// SummaryConfig selects the summary-assist provider.
type SummaryConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // proxy, anthropic, gemini, off
	ProxyURL    string `yaml:"proxy_url" mapstructure:"proxy_url"`
	Placeholder string `yaml:"placeholder" mapstructure:"placeholder"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PhoneConfig controls phone number formatting.
type PhoneConfig struct {
	DefaultRegion string `yaml:"default_region" mapstructure:"default_region"`
}

const sheetBase = "https://docs.google.com/spreadsheets/d/1jGgm5-i3RX-g9gBmWbY9sLcxKUtV3ly1WnaJdaczk98/gviz/tq?tqx=out:csv&sheet="

// DefaultUsers is the allow-list used when none is configured.
func DefaultUsers() []UserConfig {
	return []UserConfig{
		{Username: "Kavin", Password: "Kavin@3", Role: "EMPLOYEE"},
		{Username: "Bhuvanesh", Password: "Bhuvanesh@11", Role: "EMPLOYEE"},
		{Username: "Logesh", Password: "Logesh@28", Role: "EMPLOYEE"},
		{Username: "Karthik", Password: "Karthik@17", Role: "ADMIN"},
	}
}

// DefaultSourceURLs returns the per-specialist and master sheet exports.
func DefaultSourceURLs() map[string]string {
	return map[string]string{
		"kavin":     sheetBase + "Kavin",
		"bhuvanesh": sheetBase + "Bhuvanesh",
		"logesh":    sheetBase + "Logesh",
		"db":        sheetBase + "DB",
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadledger.db")
	v.SetDefault("store.key", "leadledger_state_v4")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("sources.urls", DefaultSourceURLs())
	v.SetDefault("sources.master", "db")
	v.SetDefault("sources.timeout_secs", 20)
	v.SetDefault("sources.user_agent", "leadledger/1.0")
	v.SetDefault("sources.rate_per_second", 5.0)
	v.SetDefault("sources.failure_threshold", 3)
	v.SetDefault("sources.reset_timeout_secs", 60)
	v.SetDefault("alerts.threshold_secs", 60)
	v.SetDefault("alerts.check_interval_secs", 300)
	v.SetDefault("summary.provider", "off")
	v.SetDefault("summary.proxy_url", "http://localhost:3000/api/gemini")
	v.SetDefault("summary.placeholder", "Intelligence offline.")
	v.SetDefault("summary.timeout_secs", 15)
	v.SetDefault("summary.max_attempts", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 128)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("phone.default_region", "IN")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Users) == 0 {
		cfg.Users = DefaultUsers()
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings required by mode ("serve" or "cli").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "", "sqlite", "memory":
	case "postgres", "redis":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for "+c.Store.Driver)
		}
	default:
		errs = append(errs, "store.driver must be one of sqlite, postgres, redis, memory")
	}

	if c.Alerts.ThresholdSecs <= 0 {
		errs = append(errs, "alerts.threshold_secs must be > 0")
	}

	for i, u := range c.Users {
		if strings.TrimSpace(u.Username) == "" {
			errs = append(errs, "users["+strconv.Itoa(i)+"].username is required")
		}
		if u.Password == "" && u.PasswordHash == "" {
			errs = append(errs, "users["+strconv.Itoa(i)+"] needs password or password_hash")
		}
	}

	switch strings.ToLower(c.Summary.Provider) {
	case "", "off":
	case "proxy":
		if c.Summary.ProxyURL == "" {
			errs = append(errs, "summary.proxy_url is required for the proxy provider")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required for the gemini provider")
		}
	default:
		errs = append(errs, "summary.provider must be one of proxy, anthropic, gemini, off")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}
