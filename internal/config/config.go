package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Smoobu   SmoobuConfig   `mapstructure:"smoobu"`
	Gate     GateConfig     `mapstructure:"gate"`
	Cleaner  CleanerConfig  `mapstructure:"cleaner"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Property PropertyConfig `mapstructure:"property"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// CacheConfig selects the reservation-metadata cache backend.
// Backend is "db" (default, same database as the ledger) or "redis".
type CacheConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration.
// Driver is "sqlite" (single-file, the default for one property) or "mysql".
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// SmoobuConfig holds booking platform API configuration
type SmoobuConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GateConfig holds classification/composition service configuration.
// Provider is "openai" for the live service or "simulator" for the
// deterministic keyword matcher.
type GateConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// CleanerConfig holds cleaning-staff channel configuration.
// Channel is "console" or "email".
type CleanerConfig struct {
	Channel      string `mapstructure:"channel"`
	Name         string `mapstructure:"name"`
	Email        string `mapstructure:"email"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
}

// PollerConfig holds polling cycle configuration
type PollerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	CutoffDays      int `mapstructure:"cutoff_days"`
}

// PropertyConfig holds the standing times of the monitored property
type PropertyConfig struct {
	DefaultCheckinTime  string `mapstructure:"default_checkin_time"`
	DefaultCheckoutTime string `mapstructure:"default_checkout_time"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "data/checkin.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("smoobu.base_url", "https://login.smoobu.com/api")

	viper.SetDefault("gate.provider", "openai")
	viper.SetDefault("gate.model", "gpt-4o-mini")

	viper.SetDefault("cleaner.channel", "console")
	viper.SetDefault("cleaner.name", "Marie")
	viper.SetDefault("cleaner.smtp_host", "smtp.gmail.com")
	viper.SetDefault("cleaner.smtp_port", 587)
	viper.SetDefault("cleaner.imap_host", "imap.gmail.com")
	viper.SetDefault("cleaner.imap_port", 993)

	viper.SetDefault("poller.interval_seconds", 60)
	viper.SetDefault("poller.cutoff_days", 14)

	viper.SetDefault("property.default_checkin_time", "15:00")
	viper.SetDefault("property.default_checkout_time", "11:00")

	viper.SetDefault("cache.backend", "db")
	viper.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	viper.SetDefault("cache.redis_db", 0)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.driver", "DB_DRIVER")
	viper.BindEnv("database.path", "DB_PATH")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Smoobu
	viper.BindEnv("smoobu.api_key", "SMOOBU_API_KEY")
	viper.BindEnv("smoobu.base_url", "SMOOBU_BASE_URL")

	// Gate
	viper.BindEnv("gate.provider", "GATE_PROVIDER")
	viper.BindEnv("gate.api_key", "OPENAI_API_KEY")
	viper.BindEnv("gate.model", "GATE_MODEL")

	// Cleaner
	viper.BindEnv("cleaner.channel", "CLEANING_STAFF_CHANNEL")
	viper.BindEnv("cleaner.name", "CLEANER_NAME")
	viper.BindEnv("cleaner.email", "CLEANER_EMAIL")
	viper.BindEnv("cleaner.smtp_host", "EMAIL_SMTP_HOST")
	viper.BindEnv("cleaner.smtp_port", "EMAIL_SMTP_PORT")
	viper.BindEnv("cleaner.smtp_user", "EMAIL_USER")
	viper.BindEnv("cleaner.smtp_password", "EMAIL_PASSWORD")
	viper.BindEnv("cleaner.imap_host", "EMAIL_IMAP_HOST")
	viper.BindEnv("cleaner.imap_port", "EMAIL_IMAP_PORT")

	// Poller
	viper.BindEnv("poller.interval_seconds", "POLL_INTERVAL")
	viper.BindEnv("poller.cutoff_days", "CUTOFF_DAYS")

	// Property
	viper.BindEnv("property.default_checkin_time", "DEFAULT_CHECKIN_TIME")
	viper.BindEnv("property.default_checkout_time", "DEFAULT_CHECKOUT_TIME")

	// Cache
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("cache.redis_addr", "REDIS_ADDR")
	viper.BindEnv("cache.redis_db", "REDIS_DB")
}

// GetDSN returns the MySQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	case "mysql":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required for the mysql driver")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Smoobu.APIKey == "" {
		return fmt.Errorf("smoobu API key is required")
	}

	switch c.Gate.Provider {
	case "openai":
		if c.Gate.APIKey == "" {
			return fmt.Errorf("gate API key is required when provider is openai")
		}
	case "simulator":
	default:
		return fmt.Errorf("unknown gate provider: %q", c.Gate.Provider)
	}

	switch c.Cleaner.Channel {
	case "email":
		if c.Cleaner.Email == "" || c.Cleaner.SMTPUser == "" || c.Cleaner.SMTPPassword == "" {
			return fmt.Errorf("cleaner email and SMTP credentials are required when channel is email")
		}
	case "console":
	default:
		return fmt.Errorf("unknown cleaner channel: %q", c.Cleaner.Channel)
	}

	switch c.Cache.Backend {
	case "db":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required when cache backend is redis")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.Poller.IntervalSeconds <= 0 {
		return fmt.Errorf("poller interval must be greater than 0")
	}
	if c.Poller.CutoffDays <= 0 {
		return fmt.Errorf("poller cutoff window must be greater than 0")
	}

	return nil
}
