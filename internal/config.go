package internal

import (
	"collab-lab/errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3001"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	StorageDriver  string `env:"STORAGE_DRIVER,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,default=./data/bluge"`
	PostgresDSN    string `env:"POSTGRES_DSN"`

	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	AppendTimeout        time.Duration `env:"APPEND_TIMEOUT,default=0s"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	SearchLimit          int           `env:"SEARCH_LIMIT,default=50"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=15s"`

	EnableModeration bool   `env:"ENABLE_MODERATION,default=false"`
	CharReplacement  string `env:"CHARACTER_REPLACEMENT,default=*"`

	AuthSecret        string        `env:"AUTH_SECRET"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS,default=*"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=25s"`
	PongTimeout       time.Duration `env:"PONG_TIMEOUT,default=60s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=10s"`
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	origins := lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	})
	return lo.Compact(origins)
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverBadger:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required with the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownDriver, c.StorageDriver)
	}
	if c.BufferSize <= 0 || c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("BUFFER_SIZE and CONNECTION_BUFFER_SIZE must be positive")
	}
	if c.LimitMessages != nil && *c.LimitMessages <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive, got %d", *c.LimitMessages)
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
