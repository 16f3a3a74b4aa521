package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dkeye/chatrelay/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	HTTPAddr     string        `mapstructure:"http_addr"`
	LogLevel     string        `mapstructure:"log_level"`
	Framing      string        `mapstructure:"framing"`
	ReadBuffer   int           `mapstructure:"read_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EventQueue   int           `mapstructure:"event_queue"`
	MaxNickLen   int           `mapstructure:"max_nick_len"`
}

// ListenAddr is the chat listener address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// FramingMode returns the parsed framing mode. Validate has already run.
func (c *Config) FramingMode() protocol.Mode {
	m, _ := protocol.ParseMode(c.Framing)
	return m
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := protocol.ParseMode(c.Framing); err != nil {
		return err
	}
	if c.ReadBuffer <= 0 {
		return errors.New("read_buffer must be positive")
	}
	if c.WriteTimeout < 0 {
		return errors.New("write_timeout must not be negative")
	}
	return nil
}

// Load reads config/config.<CONFIG_ENV>.yaml when present, applies CHAT_*
// environment overrides and validates the result.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("chat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("host", "")
	v.SetDefault("port", 0)
	v.SetDefault("http_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("framing", string(protocol.ModeLegacy))
	v.SetDefault("read_buffer", 16384)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("event_queue", 256)
	v.SetDefault("max_nick_len", 0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Int("port", cfg.Port).Str("http", cfg.HTTPAddr).Str("framing", cfg.Framing).Msg("config ready")
	return &cfg, nil
}

// ParsePort validates the positional port argument.
func ParsePort(arg string) (int, error) {
	p, err := strconv.Atoi(arg)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", arg)
	}
	return p, nil
}
