package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable that points at the YAML config file.
const EnvConfigPath = "DHARMAGATE_CONFIG"

type Config struct {
	ListenAddr string `yaml:"listen_addr" env:"DHARMAGATE_LISTEN"`
	DataDir    string `yaml:"data_dir" env:"DHARMAGATE_DATA_DIR"`
	ContentDir string `yaml:"content_dir" env:"DHARMAGATE_CONTENT_DIR"`
	LogDir     string `yaml:"log_dir" env:"DHARMAGATE_LOG_DIR"`
	LogLevel   string `yaml:"log_level" env:"DHARMAGATE_LOG_LEVEL"`

	Storage Storage `yaml:"storage" envPrefix:"DHARMAGATE_STORAGE_"`
	Session Session `yaml:"session" envPrefix:"DHARMAGATE_SESSION_"`
	Auth    Auth    `yaml:"auth" envPrefix:"DHARMAGATE_AUTH_"`
}

type Storage struct {
	Driver        string `yaml:"driver" env:"DRIVER"`
	SQLitePath    string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"REDIS_PREFIX"`
	UsersKey      string `yaml:"users_key" env:"USERS_KEY"`
	SessionPrefix string `yaml:"session_prefix" env:"SESSION_PREFIX"`
}

type Session struct {
	// Secret signs session cookies; base64url or raw text. Empty generates
	// a per-process secret, which logs everyone out on restart.
	Secret       string        `yaml:"secret" env:"SECRET"`
	CookieName   string        `yaml:"cookie_name" env:"COOKIE_NAME"`
	CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`
	CookieMaxAge time.Duration `yaml:"cookie_max_age" env:"COOKIE_MAX_AGE"`
}

type Auth struct {
	PasswordScheme      string        `yaml:"password_scheme" env:"PASSWORD_SCHEME"`
	BcryptCost          int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	AcceptedAffiliation string        `yaml:"accepted_affiliation" env:"ACCEPTED_AFFILIATION"`
	AffiliationMessage  string        `yaml:"affiliation_message" env:"AFFILIATION_MESSAGE"`
	MinPasswordLength   int           `yaml:"min_password_length" env:"MIN_PASSWORD_LENGTH"`
	RedirectDelay       time.Duration `yaml:"redirect_delay" env:"REDIRECT_DELAY"`
	MessageTimeout      time.Duration `yaml:"message_timeout" env:"MESSAGE_TIMEOUT"`
}

func Defaults() Config {
	return Config{
		ListenAddr: ":14392",
		DataDir:    "/dharmagate_data",
		LogLevel:   "info",
		Storage: Storage{
			Driver: "file",
		},
		Session: Session{
			CookieName:   "dharmagate_session",
			CookieMaxAge: 400 * 24 * time.Hour,
		},
		Auth: Auth{
			PasswordScheme:      "bcrypt",
			BcryptCost:          12,
			AcceptedAffiliation: "yes",
			MinPasswordLength:   6,
			RedirectDelay:       2 * time.Second,
			MessageTimeout:      5 * time.Second,
		},
	}
}

// Load builds the effective config: defaults, then the YAML file at path
// (falling back to $DHARMAGATE_CONFIG), then DHARMAGATE_* variables.
// A missing or empty file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	switch c.Storage.Driver {
	case "", "file":
		if c.DataDir == "" {
			return errors.New("data_dir is required for the file storage driver")
		}
	case "memory":
	case "sqlite":
		if c.SQLitePath() == "" {
			return errors.New("storage.sqlite_path or data_dir is required for the sqlite driver")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.MinPasswordLength < 1 {
		return errors.New("auth.min_password_length must be at least 1")
	}
	return nil
}

// StoreDir is where the file driver keeps its keys.
func (c Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

func (c Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "dharmagate.db")
}

// WriteDefault writes the default config as YAML unless path already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(Defaults())
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
