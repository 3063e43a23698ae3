package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
	StaticDir    string `mapstructure:"static_dir"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// ChainConfig holds chain node and funding configuration
type ChainConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	DeploymentPath      string        `mapstructure:"deployment_path"`
	DeployerPrivateKey  string        `mapstructure:"deployer_private_key"`
	FundAmountETH       int64         `mapstructure:"fund_amount_eth"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string `mapstructure:"jwt_public_key"` // Ed25519 public key in SPKI PEM format
	Issuer       string `mapstructure:"issuer"`
	Audience     string `mapstructure:"audience"`
}

// RateLimitConfig holds fixed-window rate limiter configuration
type RateLimitConfig struct {
	Max     int           `mapstructure:"max"`
	Window  time.Duration `mapstructure:"window"`
	MaxKeys int           `mapstructure:"max_keys"`
}

// SessionConfig holds session table configuration
type SessionConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
}

// APIConfig holds configuration for the instance API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig    `mapstructure:"server"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Chain      ChainConfig     `mapstructure:"chain"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Session    SessionConfig   `mapstructure:"session"`
}

// LoadAPIConfig loads configuration for the instance API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("chain.rpc_url", "http://localhost:8545")
	v.SetDefault("chain.deployment_path", "data/instance.json")
	v.SetDefault("chain.fund_amount_eth", 10)
	v.SetDefault("chain.confirm_timeout", "30s")
	v.SetDefault("chain.receipt_poll_interval", "500ms")
	v.SetDefault("auth.issuer", "checker")
	v.SetDefault("auth.audience", "supp-dex")
	v.SetDefault("rate_limit.max", 3)
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("rate_limit.max_keys", 65536)
	v.SetDefault("session.ttl", "168h") // matches the cookie lifetime
	v.SetDefault("session.max_sessions", 65536)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("SUPPDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.static_dir",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Chain
		"chain.rpc_url",
		"chain.deployment_path",
		"chain.deployer_private_key",
		"chain.fund_amount_eth",
		"chain.confirm_timeout",
		"chain.receipt_poll_interval",
		// Auth
		"auth.jwt_public_key",
		"auth.issuer",
		"auth.audience",
		// Rate limiter
		"rate_limit.max",
		"rate_limit.window",
		"rate_limit.max_keys",
		// Sessions
		"session.ttl",
		"session.max_sessions",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
