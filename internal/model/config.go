package model

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Database driver names accepted in DatabaseConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// DatabaseConfig selects and locates the relational store.
type DatabaseConfig struct {
	// Driver is one of DriverSQLite, DriverPostgres or DriverMemory.
	// When empty it resolves to postgres if Host is set, sqlite otherwise.
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file (":memory:" is allowed).
	Path string `mapstructure:"path" yaml:"path"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Name     string `mapstructure:"name" yaml:"name"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// PostgresDSN returns a lib/pq keyword/value connection string. Values are
// quoted so empty or space-containing values survive parsing.
func (c DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnQuote(c.Host), c.Port, dsnQuote(c.User), dsnQuote(c.Password),
		dsnQuote(c.Name), dsnQuote(c.SSLMode))
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func dsnQuote(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

// SessionConfig controls session cookies and token lifetime.
type SessionConfig struct {
	CookieName   string `mapstructure:"cookie_name" yaml:"cookie_name"`
	SecureCookie bool   `mapstructure:"secure_cookie" yaml:"secure_cookie"`

	// TTL of zero means sessions never expire.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// PurgeInterval is how often expired sessions are removed when TTL > 0.
	PurgeInterval time.Duration `mapstructure:"purge_interval" yaml:"purge_interval"`

	// Secret signs session tokens. When empty the key comes from the OS
	// keyring (UseKeyring) or is generated per process.
	Secret     string `mapstructure:"secret" yaml:"secret"`
	UseKeyring bool   `mapstructure:"use_keyring" yaml:"use_keyring"`
}

// AuthConfig holds password hashing settings.
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.addr":       "TODO_ADDR",
	"database.driver":   "DB_DRIVER",
	"database.path":     "DB_PATH",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"database.sslmode":  "DB_SSLMODE",
	"session.ttl":       "SESSION_TTL",
	"session.secret":    "SESSION_SECRET",
	"log.level":         "LOG_LEVEL",
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:    "todo.db",
			Port:    5432,
			SSLMode: "disable",
		},
		Session: SessionConfig{
			CookieName:    "todo_session",
			PurgeInterval: 10 * time.Minute,
		},
		Auth: AuthConfig{BcryptCost: bcrypt.DefaultCost},
		Log:  LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the YAML file at path (optional; an
// empty or missing path yields defaults) and applies environment overrides.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := DefaultConfig()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", def.Server.IdleTimeout)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.port", def.Database.Port)
	v.SetDefault("database.sslmode", def.Database.SSLMode)
	v.SetDefault("session.cookie_name", def.Session.CookieName)
	v.SetDefault("session.ttl", time.Duration(0))
	v.SetDefault("session.purge_interval", def.Session.PurgeInterval)
	v.SetDefault("auth.bcrypt_cost", def.Auth.BcryptCost)
	v.SetDefault("log.level", def.Log.Level)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			_, isPathErr := err.(*os.PathError)
			_, isNotFound := err.(viper.ConfigFileNotFoundError)
			if !isPathErr && !isNotFound {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize resolves derived defaults and rejects invalid values.
func (c *AppConfig) normalize() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		if c.Database.Host != "" {
			c.Database.Driver = DriverPostgres
		} else {
			c.Database.Driver = DriverSQLite
		}
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("postgres driver requires DB_HOST, DB_USER and DB_NAME")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "todo_session"
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d",
			bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
