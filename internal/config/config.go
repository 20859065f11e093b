package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v2"
)

// EnvConfig is the process-wide configuration. It is built once by Load and
// passed by value or pointer into the components that need it; nothing
// mutates it afterwards.
type EnvConfig struct {
	DBDriver          string        `yaml:"db_driver" env:"DB_DRIVER"`
	DBHost            string        `yaml:"db_host" env:"DB_HOST"`
	DBPort            int           `yaml:"db_port" env:"DB_PORT"`
	DBUser            string        `yaml:"db_user" env:"DB_USER"`
	DBPassword        string        `yaml:"db_password" env:"DB_PASSWORD"`
	DBName            string        `yaml:"db_name" env:"DB_NAME"`
	DBSSLMode         string        `yaml:"db_ssl_mode" env:"DB_SSL_MODE"`
	DBPath            string        `yaml:"db_path" env:"DB_PATH"`
	DBMaxOpenConns    int           `yaml:"db_max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `yaml:"db_max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	DBConnectRetries  int           `yaml:"db_connect_retries" env:"DB_CONNECT_RETRIES"`

	JWTSecretKey             string `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	JWTAlgorithm             string `yaml:"jwt_algorithm" env:"JWT_ALGORITHM"`
	AccessTokenExpireMinutes int    `yaml:"access_token_expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	BcryptCost               int    `yaml:"bcrypt_cost" env:"BCRYPT_COST"`

	APIHost     string   `yaml:"api_host" env:"API_HOST"`
	APIPort     int      `yaml:"api_port" env:"API_PORT"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`

	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"`
	LogFilePath string `yaml:"log_file_path" env:"LOG_FILE_PATH"`
}

// Default returns the baseline every other layer overrides.
func Default() EnvConfig {
	return EnvConfig{
		DBDriver:                 "postgres",
		DBHost:                   "localhost",
		DBPort:                   5432,
		DBUser:                   "postgres",
		DBName:                   "todo_db",
		DBSSLMode:                "disable",
		DBPath:                   "tasktracker.db",
		DBMaxOpenConns:           25,
		DBMaxIdleConns:           25,
		DBConnMaxLifetime:        5 * time.Minute,
		DBConnectRetries:         5,
		JWTAlgorithm:             "HS256",
		AccessTokenExpireMinutes: 30,
		BcryptCost:               bcrypt.DefaultCost,
		APIHost:                  "0.0.0.0",
		APIPort:                  8000,
		CORSOrigins:              []string{"http://localhost:3000"},
		LogLevel:                 "info",
		LogFormat:                "json",
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML file named by CONFIG_FILE, the given .env files (or ./.env), and
// the process environment.
func Load(dotenvFiles ...string) (*EnvConfig, error) {
	if err := loadDotenv(dotenvFiles); err != nil {
		return nil, err
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeYAMLFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	// Load never overrides variables already present in the environment.
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

func (c *EnvConfig) mergeYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *EnvConfig) normalize() {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.JWTAlgorithm = strings.ToUpper(strings.TrimSpace(c.JWTAlgorithm))
	origins := c.CORSOrigins[:0]
	for _, o := range c.CORSOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSOrigins = origins
}

// Validate rejects configurations the services cannot start with.
func (c *EnvConfig) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM must be one of HS256, HS384, HS512, got %q", c.JWTAlgorithm))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT out of range: %d", c.APIPort))
	}
	return errors.Join(errs...)
}

func (c *EnvConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *EnvConfig) ListenAddr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.APIPort))
}
