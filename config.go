package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// configPathEnvVar overrides the config file search.
const configPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Admin    AdminConfig    `koanf:"admin"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Environment     string        `koanf:"environment"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// VoteRateLimit is the number of votes one client may cast per
	// VoteRateWindow. Zero disables the limit.
	VoteRateLimit  int           `koanf:"vote_rate_limit"`
	VoteRateWindow time.Duration `koanf:"vote_rate_window"`
}

type DatabaseConfig struct {
	URL  string `koanf:"url"`
	Seed bool   `koanf:"seed"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AdminConfig struct {
	Password  string        `koanf:"password"`
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			Environment:     "development",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			VoteRateLimit:   60,
			VoteRateWindow:  time.Minute,
		},
		Database: DatabaseConfig{
			URL: "sqlite://upnext.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Admin: AdminConfig{
			TokenTTL: 72 * time.Hour,
		},
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c Config) IsTest() bool {
	return c.Server.Environment == "test"
}

// LoadConfig layers defaults, an optional YAML file and environment
// variables, in increasing priority. A .env file in the working directory is
// loaded into the environment first.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	// comma separated env values arrive as a single string
	if origins, ok := k.Get("server.cors_origins").(string); ok {
		if err := k.Set("server.cors_origins", splitList(origins)); err != nil {
			return Config{}, fmt.Errorf("parse cors origins: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(configPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var envMappings = map[string]string{
	"port":             "server.port",
	"http_port":        "server.port",
	"http_host":        "server.host",
	"app_env":          "server.environment",
	"shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":     "server.cors_origins",
	"vote_rate_limit":  "server.vote_rate_limit",
	"vote_rate_window": "server.vote_rate_window",
	"db_url":           "database.url",
	"database_url":     "database.url",
	"db_seed":          "database.seed",
	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"admin_password":   "admin.password",
	"jwt_secret":       "admin.jwt_secret",
	"admin_token_ttl":  "admin.token_ttl",
}

// envTransformFunc maps known environment variables to config keys. Unknown
// variables map to "" and are skipped by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	if c.Database.URL == "" {
		return errors.New("DB_URL is required")
	}
	if _, ok := logLevels[strings.ToLower(c.Logging.Level)]; !ok {
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if c.Admin.Password != "" && c.Admin.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when ADMIN_PASSWORD is set")
	}
	if c.Server.VoteRateLimit < 0 {
		return errors.New("VOTE_RATE_LIMIT must not be negative")
	}
	return nil
}
