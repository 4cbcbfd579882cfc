// Package config loads the exchange service settings from environment
// variables. Every field carries its default in a struct tag and the whole
// configuration is validated once at startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Exchange ExchangeConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including the wait for
	// running imports to drain (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty, committed
	// imports are kept in memory and lost on restart.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ExchangeConfig holds import and export settings.
type ExchangeConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 20MB)
	MaxFileSize int64 `env:"EXCHANGE_MAX_FILE_SIZE" default:"20971520"`

	// PreviewRows is how many valid rows a preview shows (default: 10)
	PreviewRows int `env:"EXCHANGE_PREVIEW_ROWS" default:"10"`

	// MaxErrors is how many row errors a preview lists (default: 20)
	MaxErrors int `env:"EXCHANGE_MAX_ERRORS" default:"20"`

	// SessionTTL is how long an idle import session survives (default: 30m)
	SessionTTL time.Duration `env:"EXCHANGE_SESSION_TTL" default:"30m"`

	// Delimiter forces the CSV field separator. Empty means sniff it.
	Delimiter string `env:"EXCHANGE_CSV_DELIMITER"`

	// UseCRLF ends exported CSV lines with \r\n (default: false)
	UseCRLF bool `env:"EXCHANGE_CSV_CRLF" default:"false"`

	// MaxConcurrent is the number of previews or commits that may run at
	// once (default: 4)
	MaxConcurrent int `env:"EXCHANGE_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a free slot (default: 15s)
	MaxWaitTime time.Duration `env:"EXCHANGE_MAX_WAIT_TIME" default:"15s"`
}

// DelimiterRune returns the configured delimiter, or 0 to auto-detect.
func (c *ExchangeConfig) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return 0
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
