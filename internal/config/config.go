package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the server. It is built once at
// startup and passed by reference into every component.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	History  HistoryConfig  `mapstructure:"history"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	// PasswordHash is an optional bcrypt hash. When set, Hello must carry
	// the matching password to join the table.
	PasswordHash string        `mapstructure:"password_hash"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PongTimeout  time.Duration `mapstructure:"pong_timeout"`
}

// GameConfig holds the table rules that vary by house rules.
type GameConfig struct {
	MinPlayers         int  `mapstructure:"min_players"`
	MaxPlayers         int  `mapstructure:"max_players"`
	StartingMoney      int  `mapstructure:"starting_money"`
	AuctionMinBid      int  `mapstructure:"auction_min_bid"`
	FreeParkingJackpot bool `mapstructure:"free_parking_jackpot"`
	// Seed pins the dice and deck shuffles; 0 means seed from the clock.
	Seed int64 `mapstructure:"seed"`
}

// HistoryConfig bounds the undo/redo stacks.
type HistoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// ReplayConfig controls replay recording.
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// DatabaseConfig configures the optional results store. An empty DSN
// disables persistence entirely.
type DatabaseConfig struct {
	DSN      string        `mapstructure:"dsn"`
	MaxConns int32         `mapstructure:"max_conns"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file, applying defaults and
// MONOPOLY_* environment overrides. A missing file is not an error; the
// defaults describe a playable local table.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", "localhost:12345")
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.pong_timeout", 60*time.Second)
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.max_players", 8)
	v.SetDefault("game.starting_money", 1500)
	v.SetDefault("game.auction_min_bid", 0)
	v.SetDefault("game.free_parking_jackpot", false)
	v.SetDefault("game.seed", 0)
	v.SetDefault("history.capacity", 128)
	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "replays")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("MONOPOLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Game.MinPlayers < 2 {
		return fmt.Errorf("game.min_players must be at least 2, got %d", c.Game.MinPlayers)
	}
	if c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("game.max_players (%d) below game.min_players (%d)",
			c.Game.MaxPlayers, c.Game.MinPlayers)
	}
	if c.Game.StartingMoney <= 0 {
		return fmt.Errorf("game.starting_money must be positive, got %d", c.Game.StartingMoney)
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity)
	}
	return nil
}

func isNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
}
