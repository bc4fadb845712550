package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// ServerConfig holds the transport settings.
type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// WebSocketConfig holds the WebSocket listener settings.
type WebSocketConfig struct {
	Address      string        `mapstructure:"address"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PongTimeout  time.Duration `mapstructure:"pong_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CombatConfig holds the combat tuning knobs.
type CombatConfig struct {
	MaxHandSize  int   `mapstructure:"max_hand_size"`
	DrawPerRound int   `mapstructure:"draw_per_round"`
	MaxHealth    int   `mapstructure:"max_health"`
	MaxEnergy    int   `mapstructure:"max_energy"`
	Seed         int64 `mapstructure:"seed"`
}

// CatalogConfig points at an optional card set file; empty uses the
// built-in starter set.
type CatalogConfig struct {
	CardSetPath string `mapstructure:"card_set_path"`
}

// Load reads configuration from the given YAML file, with COMBAT_-prefixed
// environment variables overriding file values. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.websocket.address", ":8089")
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.pong_timeout", 60*time.Second)
	v.SetDefault("server.websocket.send_buffer", 64)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.max_conn_lifetime", time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("combat.max_hand_size", 10)
	v.SetDefault("combat.draw_per_round", 5)
	v.SetDefault("combat.max_health", 30)
	v.SetDefault("combat.max_energy", 3)
	v.SetDefault("combat.seed", 0)

	v.SetDefault("catalog.card_set_path", "")

	v.SetEnvPrefix("COMBAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Combat.MaxHandSize <= 0 {
		return nil, fmt.Errorf("combat.max_hand_size must be positive, got %d", cfg.Combat.MaxHandSize)
	}
	if cfg.Combat.DrawPerRound <= 0 {
		return nil, fmt.Errorf("combat.draw_per_round must be positive, got %d", cfg.Combat.DrawPerRound)
	}

	return &cfg, nil
}
