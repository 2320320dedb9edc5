// Package config loads reqsync settings from ~/.reqsync/config.toml,
// REQSYNC_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. REQSYNC_MIRROR_DRIVER.
	EnvPrefix = "REQSYNC"

	// DirName is the per-user state directory under $HOME.
	DirName = ".reqsync"

	// FileName is the config file inside DirName.
	FileName = "config.toml"
)

// Mirror drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Authoritative store backends.
const (
	BackendFilesystem = "filesystem"
	BackendGitHub     = "github"
)

// Config is the resolved application configuration.
type Config struct {
	// DataDir holds the embedded mirror database and default folders.
	DataDir string `mapstructure:"data_dir" validate:"required"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`

	// LogFormat is auto, console or json.
	LogFormat string `mapstructure:"log_format" validate:"oneof=auto console json"`

	// StoreTimeout bounds each mirror or authoritative store call.
	StoreTimeout time.Duration `mapstructure:"store_timeout" validate:"gte=0"`

	// RulesFile optionally replaces the built-in parser rules.
	RulesFile string `mapstructure:"rules_file"`

	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Authority AuthorityConfig `mapstructure:"authority"`
	Watch     WatchConfig     `mapstructure:"watch"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

// MirrorConfig selects the mirror store.
type MirrorConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres memory"`

	// DSN is the Postgres connection URL.
	DSN string `mapstructure:"dsn" validate:"required_if=Driver postgres"`

	// MaxConns caps the Postgres pool. Zero keeps the driver default.
	MaxConns int32 `mapstructure:"max_conns" validate:"gte=0"`

	// LockTTL is how long an abandoned SQLite run lock blocks others.
	LockTTL time.Duration `mapstructure:"lock_ttl" validate:"gte=0"`
}

// AuthorityConfig selects the authoritative store.
type AuthorityConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=filesystem github"`

	// Root is the document directory for the filesystem backend.
	Root string `mapstructure:"root"`

	GitHub GitHubConfig `mapstructure:"github"`
}

// GitHubConfig locates documents in a GitHub repository.
type GitHubConfig struct {
	// Repository is "owner/repo".
	Repository string `mapstructure:"repository"`
	Branch     string `mapstructure:"branch"`
	Dir        string `mapstructure:"dir"`

	// Token is a personal access or OAuth token. Prefer REQSYNC_AUTHORITY_GITHUB_TOKEN.
	Token string `mapstructure:"token"`

	// BaseURL targets GitHub Enterprise. Empty means github.com.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	// Rate is the proactive request rate per second.
	Rate float64 `mapstructure:"rate" validate:"gte=0"`
}

// WatchConfig configures the intake folder watcher.
type WatchConfig struct {
	Incoming string        `mapstructure:"incoming"`
	Uploaded string        `mapstructure:"uploaded"`
	Settle   time.Duration `mapstructure:"settle" validate:"gte=0"`
}

// ReconcileConfig configures background reconciliation in the
// long-running commands.
type ReconcileConfig struct {
	// Interval between passes. Zero disables background passes.
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
}

// HTTPConfig configures the HTTP intake server.
type HTTPConfig struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DefaultDir returns ~/.reqsync.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	dir, err := DefaultDir()
	if err != nil {
		dir = DirName
	}
	v.SetDefault("data_dir", dir)
	v.SetDefault("verbose", false)
	v.SetDefault("log_format", "auto")
	v.SetDefault("store_timeout", 30*time.Second)
	v.SetDefault("rules_file", "")

	v.SetDefault("mirror.driver", DriverSQLite)
	v.SetDefault("mirror.dsn", "")
	v.SetDefault("mirror.max_conns", 0)
	v.SetDefault("mirror.lock_ttl", time.Hour)

	v.SetDefault("authority.backend", BackendFilesystem)
	v.SetDefault("authority.root", "")
	v.SetDefault("authority.github.repository", "")
	v.SetDefault("authority.github.branch", "main")
	v.SetDefault("authority.github.dir", "")
	v.SetDefault("authority.github.token", "")
	v.SetDefault("authority.github.base_url", "")
	v.SetDefault("authority.github.rate", 1.2)

	v.SetDefault("watch.incoming", "")
	v.SetDefault("watch.uploaded", "")
	v.SetDefault("watch.settle", 500*time.Millisecond)

	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("http.cors_origins", []string{})

	v.SetDefault("reconcile.interval", time.Duration(0))
}

// Load reads the config file into v and decodes the result. An empty
// path reads <data_dir>/config.toml when it exists; an explicit path
// must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(expandHome(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		def := filepath.Join(expandHome(v.GetString("data_dir")), FileName)
		v.SetConfigFile(def)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", def, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve expands ~ and fills directories derived from DataDir.
func (c *Config) resolve() {
	c.DataDir = expandHome(c.DataDir)
	c.RulesFile = expandHome(c.RulesFile)

	if c.Authority.Root == "" {
		c.Authority.Root = filepath.Join(c.DataDir, "documents")
	}
	c.Authority.Root = expandHome(c.Authority.Root)

	if c.Watch.Incoming == "" {
		c.Watch.Incoming = filepath.Join(c.DataDir, "incoming")
	}
	c.Watch.Incoming = expandHome(c.Watch.Incoming)

	if c.Watch.Uploaded == "" {
		c.Watch.Uploaded = filepath.Join(c.DataDir, "uploaded")
	}
	c.Watch.Uploaded = expandHome(c.Watch.Uploaded)

	c.Mirror.Driver = strings.ToLower(strings.TrimSpace(c.Mirror.Driver))
	c.Authority.Backend = strings.ToLower(strings.TrimSpace(c.Authority.Backend))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Authority.Backend == BackendGitHub && c.Authority.GitHub.Repository == "" {
		return fmt.Errorf("%w: authority.github.repository is required for the github backend", ErrInvalid)
	}
	return nil
}

// ErrInvalid reports a configuration that failed validation.
var ErrInvalid = errors.New("invalid config")

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
