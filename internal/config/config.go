package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	AI          AIConfig                  `json:"ai"`
	Auth        AuthConfig                `json:"auth"`
}

type BasicConfig struct {
	ServerAddress   string        `json:"server_address" env:"NIXBOT_ADDR"`
	Environment     string        `json:"environment" env:"NODE_ENV"`
	LogLevel        string        `json:"log_level" env:"LOG_LEVEL"`
	Database        string        `json:"database" env:"NIXBOT_DB"`
	HistoryLimit    int           `json:"history_limit" env:"NIXBOT_HISTORY_LIMIT"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"NIXBOT_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

// RedisConfig is optional; an empty Host disables redis-backed features.
type RedisConfig struct {
	Host     string `json:"host" env:"REDIS_HOST"`
	Port     int    `json:"port" env:"REDIS_PORT"`
	Username string `json:"username" env:"REDIS_USERNAME"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

type AIConfig struct {
	Provider  string                    `json:"provider" env:"AI_PROVIDER"`
	Providers map[string]ProviderConfig `json:"providers"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type AuthConfig struct {
	JWTSecret string        `json:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `json:"token_ttl" env:"JWT_EXPIRE"`
}

// providerKeyEnv maps provider names to the env variables holding their api keys.
var providerKeyEnv = map[string]string{
	"groq":        "GROQ_API_KEY",
	"openai":      "OPENAI_API_KEY",
	"claude":      "ANTHROPIC_API_KEY",
	"gemini":      "GOOGLE_API_KEY",
	"huggingface": "HF_API_KEY",
}

var providerModelEnv = map[string]string{
	"groq":        "GROQ_MODEL",
	"openai":      "OPENAI_MODEL",
	"claude":      "ANTHROPIC_MODEL",
	"gemini":      "GOOGLE_MODEL",
	"huggingface": "HF_MODEL",
}

const (
	DefaultAddress      = ":3001"
	DefaultHistoryLimit = 20
	DefaultTokenTTL     = 7 * 24 * time.Hour
)

// Load reads the JSON config file at path (defaults to config.json), then applies
// .env files and environment overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	var cfg Config
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	loadEnvFiles()
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults(filepath.Dir(absPath))

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret (JWT_SECRET) must be configured")
	}
	return &cfg, nil
}

func loadEnvFiles() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

func applyEnv(cfg *Config) error {
	for _, target := range []any{&cfg.BasicConfig, &cfg.Redis, &cfg.AI, &cfg.Auth} {
		if err := env.Parse(target); err != nil {
			return fmt.Errorf("parse env config: %w", err)
		}
	}
	if cfg.AI.Providers == nil {
		cfg.AI.Providers = make(map[string]ProviderConfig)
	}
	for name, keyVar := range providerKeyEnv {
		key := strings.TrimSpace(os.Getenv(keyVar))
		model := strings.TrimSpace(os.Getenv(providerModelEnv[name]))
		if key == "" && model == "" {
			continue
		}
		prov := cfg.AI.Providers[name]
		if key != "" {
			prov.APIKey = key
		}
		if model != "" {
			prov.Model = model
		}
		cfg.AI.Providers[name] = prov
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		if cfg.Databases == nil {
			cfg.Databases = make(map[string]DatabaseConfig)
		}
		driver := cfg.BasicConfig.Database
		if driver == "" {
			driver = "sqlite3"
		}
		db := cfg.Databases[driver]
		db.DSN = dsn
		cfg.Databases[driver] = db
	}
	return nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = DefaultAddress
	}
	if c.BasicConfig.Environment == "" {
		c.BasicConfig.Environment = "development"
	}
	if c.BasicConfig.Database == "" {
		c.BasicConfig.Database = "sqlite3"
	}
	if c.BasicConfig.HistoryLimit <= 0 {
		c.BasicConfig.HistoryLimit = DefaultHistoryLimit
	}
	if c.BasicConfig.ShutdownTimeout <= 0 {
		c.BasicConfig.ShutdownTimeout = 10 * time.Second
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	if db, ok := c.Databases["sqlite3"]; !ok || db.DSN == "" {
		db.DSN = "nixbot.db"
		c.Databases["sqlite3"] = db
	}
	sqlite := c.Databases["sqlite3"]
	if sqlite.DSN != ":memory:" && !strings.HasPrefix(sqlite.DSN, "file:") && !filepath.IsAbs(sqlite.DSN) {
		sqlite.DSN = filepath.Join(baseDir, sqlite.DSN)
		c.Databases["sqlite3"] = sqlite
	}
}

// jsonDuration decodes a Go duration string ("30s", "24h") or an integer count of nanoseconds.
type jsonDuration time.Duration

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = 0
	case float64:
		*d = jsonDuration(time.Duration(v))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = jsonDuration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

func (b *BasicConfig) UnmarshalJSON(data []byte) error {
	type plain BasicConfig
	aux := struct {
		*plain
		ShutdownTimeout jsonDuration `json:"shutdown_timeout"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.ShutdownTimeout = time.Duration(aux.ShutdownTimeout)
	return nil
}

func (a *AuthConfig) UnmarshalJSON(data []byte) error {
	type plain AuthConfig
	aux := struct {
		*plain
		TokenTTL jsonDuration `json:"token_ttl"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.TokenTTL = time.Duration(aux.TokenTTL)
	return nil
}

// Provider returns the configuration for the named ai provider.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	prov, ok := c.AI.Providers[strings.ToLower(name)]
	return prov, ok
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.BasicConfig.Environment, "production")
}
