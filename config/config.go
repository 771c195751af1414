package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	HTTPAddress    string          `mapstructure:"http_address"`
	RPCAddress     string          `mapstructure:"rpc_address"`
	HealthAddress  string          `mapstructure:"health_address"`
	MetricsAddress string          `mapstructure:"metrics_address"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	SendBuffer     int             `mapstructure:"send_buffer"`
	ReadLimit      int64           `mapstructure:"read_limit"`
	Heartbeat      time.Duration   `mapstructure:"heartbeat"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds inbound events per connection.
type RateLimitConfig struct {
	EventsPerSecond float64 `mapstructure:"events_per_second"`
	Burst           int     `mapstructure:"burst"`
}

type DatabaseConfig struct {
	// Driver selects the journal backend: "none", "gorm" or "pq".
	Driver        string         `mapstructure:"driver"`
	JournalBuffer int            `mapstructure:"journal_buffer"`
	Postgres      PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the board economy and the rule-enforcement switches.
type GameConfig struct {
	StartingBalance      int  `mapstructure:"starting_balance"`
	PassGoBonus          int  `mapstructure:"pass_go_bonus"`
	TilePrice            int  `mapstructure:"tile_price"`
	TileRent             int  `mapstructure:"tile_rent"`
	ServerDice           bool `mapstructure:"server_dice"`
	StrictTurns          bool `mapstructure:"strict_turns"`
	RotateOnLeave        bool `mapstructure:"rotate_on_leave"`
	StrictPurchases      bool `mapstructure:"strict_purchases"`
	ReleaseOrphanedTiles bool `mapstructure:"release_orphaned_tiles"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.health_address", ":8082")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.send_buffer", 64)
	v.SetDefault("server.read_limit", 4096)
	v.SetDefault("server.heartbeat", 30*time.Second)
	v.SetDefault("server.rate_limit.events_per_second", 20)
	v.SetDefault("server.rate_limit.burst", 40)

	v.SetDefault("database.driver", "none")
	v.SetDefault("database.journal_buffer", 256)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.dbname", "boardserver")

	v.SetDefault("game.starting_balance", 1500)
	v.SetDefault("game.pass_go_bonus", 200)
	v.SetDefault("game.tile_price", 200)
	v.SetDefault("game.tile_rent", 200)
	v.SetDefault("game.server_dice", true)
	v.SetDefault("game.strict_turns", true)
	v.SetDefault("game.rotate_on_leave", false)
	v.SetDefault("game.strict_purchases", false)
	v.SetDefault("game.release_orphaned_tiles", false)
}

// LoadConfig reads config.yaml from path. A missing file is not an error;
// defaults and BOARD_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("board")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
