package pg

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries everything needed to reach a server and size the pool.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	TLS        bool
	UnixSocket string // when set, overrides Host/Port

	ConnectTimeout time.Duration

	MinConnections int
	MaxConnections int
	IdleTimeout    time.Duration
	AcquireTimeout time.Duration
}

// DefaultConfig returns the conventional localhost defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           5432,
		User:           "postgres",
		Database:       "postgres",
		ConnectTimeout: 10 * time.Second,
		MinConnections: 0,
		MaxConnections: 10,
		IdleTimeout:    5 * time.Minute,
		AcquireTimeout: 30 * time.Second,
	}
}

// addr returns the network and address to dial.
func (c Config) addr() (network, addr string) {
	if c.UnixSocket != "" {
		return "unix", c.UnixSocket
	}
	return "tcp", fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ConfigFromEnv overlays PG_* environment variables (and DATABASE_URL if
// present) onto the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if u, ok := os.LookupEnv("DATABASE_URL"); ok {
		if parsed, err := ParseURL(u); err == nil {
			cfg = parsed
		}
	}
	if v, ok := os.LookupEnv("PG_HOST"); ok {
		cfg.Host = v
	}
	if v, ok := os.LookupEnv("PG_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v, ok := os.LookupEnv("PG_USER"); ok {
		cfg.User = v
	}
	if v, ok := os.LookupEnv("PG_PASSWORD"); ok {
		cfg.Password = v
	}
	if v, ok := os.LookupEnv("PG_DATABASE"); ok {
		cfg.Database = v
	}
	return cfg
}

// ParseURL parses a postgres:// or postgresql:// URL into a Config.
func ParseURL(raw string) (Config, error) {
	cfg := DefaultConfig()
	u, err := url.Parse(raw)
	if err != nil {
		return cfg, fmt.Errorf("parse database url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return cfg, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			cfg.Password = pw
		}
	}
	if h := u.Hostname(); h != "" {
		cfg.Host = h
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			cfg.Port = n
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		cfg.Database = db
	}
	q := u.Query()
	switch q.Get("sslmode") {
	case "require", "verify-ca", "verify-full":
		cfg.TLS = true
	}
	if host := q.Get("host"); strings.HasPrefix(host, "/") {
		cfg.UnixSocket = host
	}
	return cfg, nil
}

// tomlFile mirrors the qail.toml layout: a [postgres] table carrying url.
type tomlFile struct {
	Postgres struct {
		URL string `toml:"url"`
	} `toml:"postgres"`
}

// LoadConfigFile reads a qail.toml and resolves its [postgres] url.
func LoadConfigFile(path string) (Config, error) {
	var f tomlFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if f.Postgres.URL == "" {
		return Config{}, fmt.Errorf("%s: missing [postgres] url", path)
	}
	return ParseURL(f.Postgres.URL)
}
