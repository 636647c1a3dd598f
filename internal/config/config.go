package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. FORMVALIDATE_SERVER_ADDR.
const EnvPrefix = "FORMVALIDATE"

// ErrInvalidConfig is returned when a loaded value cannot be used.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Forms  FormsConfig  `mapstructure:"forms"`
	I18n   I18nConfig   `mapstructure:"i18n"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FormsConfig points at form definitions: a directory of YAML/JSON files and
// an optional OpenAPI document (path or URL) whose request bodies become
// forms.
type FormsConfig struct {
	Dir     string `mapstructure:"dir"`
	OpenAPI string `mapstructure:"openapi"`
}

// I18nConfig holds the message catalog and default locale.
type I18nConfig struct {
	File   string `mapstructure:"file"`
	Locale string `mapstructure:"locale"`
}

// New returns a viper instance with the env prefix and defaults applied.
// Commands bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("forms.dir", "forms")
	v.SetDefault("forms.openapi", "")

	v.SetDefault("i18n.file", "")
	v.SetDefault("i18n.locale", "en")

	return v
}

// Load reads the configuration held by v, an optional config file (the
// "config" key) included. A nil v is replaced by New().
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = New()
	}

	if file := strings.TrimSpace(v.GetString("config")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch Format(strings.ToLower(c.Log.Format)) {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log.format %q must be %q or %q", ErrInvalidConfig, c.Log.Format, FormatText, FormatJSON)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig)
	}
	return nil
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a
// slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, name)
	}
	return level, nil
}
