package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Promo    PromoConfig
	Payments PaymentsConfig
	Email    EmailConfig
	Kafka    KafkaConfig
	Orders   OrdersConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds session and password settings.
type AuthConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// S3Config holds AWS S3 configuration for promo catalogue files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "promos/")
}

// PromoConfig lists the promo catalogue files to load at start-up.
type PromoConfig struct {
	Files []string
}

// PaymentsConfig holds M-Pesa gateway settings.
type PaymentsConfig struct {
	Lipia           LipiaConfig
	IntaSend        IntaSendConfig
	AmountTolerance float64
	HTTPTimeout     time.Duration
}

// LipiaConfig configures the Lipia Online gateway.
type LipiaConfig struct {
	BaseURL     string
	APIKey      string
	CallbackURL string
	FeePercent  float64
}

// IntaSendConfig configures the IntaSend gateway.
type IntaSendConfig struct {
	BaseURL          string
	SecretKey        string
	WebhookChallenge string
	FeePercent       float64
}

// EmailConfig selects the outgoing mail transport.
type EmailConfig struct {
	Provider string // "log" or "ses"
	From     string
	Region   string
}

// KafkaConfig configures notification event publishing.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// OrdersConfig holds order pricing and workflow settings.
type OrdersConfig struct {
	DeliveryFee float64
	TxTimeout   time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "poultrymarket"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			TokenTTL:   getEnvAsDuration("AUTH_TOKEN_TTL", 30*24*time.Hour),
			BcryptCost: getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "promos/"),
		},
		Promo: PromoConfig{
			Files: getEnvAsSlice("PROMO_FILES", nil),
		},
		Payments: PaymentsConfig{
			Lipia: LipiaConfig{
				BaseURL:     getEnv("LIPIA_BASE_URL", "https://lipia-api.kreativelabske.com/api/v2"),
				APIKey:      getEnv("LIPIA_API_KEY", ""),
				CallbackURL: getEnv("LIPIA_CALLBACK_URL", ""),
				FeePercent:  getEnvAsFloat("LIPIA_FEE_PERCENT", 0),
			},
			IntaSend: IntaSendConfig{
				BaseURL:          getEnv("INTASEND_BASE_URL", "https://payment.intasend.com"),
				SecretKey:        getEnv("INTASEND_SECRET_KEY", ""),
				WebhookChallenge: getEnv("INTASEND_WEBHOOK_CHALLENGE", ""),
				FeePercent:       getEnvAsFloat("INTASEND_FEE_PERCENT", 3),
			},
			AmountTolerance: getEnvAsFloat("PAYMENT_AMOUNT_TOLERANCE", 1),
			HTTPTimeout:     getEnvAsDuration("PAYMENT_HTTP_TIMEOUT", 30*time.Second),
		},
		Email: EmailConfig{
			Provider: getEnv("EMAIL_PROVIDER", "log"),
			From:     getEnv("EMAIL_FROM", "no-reply@poultrymarket.co.ke"),
			Region:   getEnv("EMAIL_REGION", "eu-west-1"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "poultrymarket.notifications"),
		},
		Orders: OrdersConfig{
			DeliveryFee: getEnvAsFloat("ORDER_DELIVERY_FEE", 200),
			TxTimeout:   getEnvAsDuration("ORDER_TX_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token TTL must be positive")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("invalid bcrypt cost: %d (must be between 4 and 31)", c.Auth.BcryptCost)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	for name, pct := range map[string]float64{
		"lipia":    c.Payments.Lipia.FeePercent,
		"intasend": c.Payments.IntaSend.FeePercent,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("invalid %s fee percent: %v (must be between 0 and 100)", name, pct)
		}
	}

	if c.Payments.IntaSend.SecretKey != "" && c.Payments.IntaSend.WebhookChallenge == "" {
		return fmt.Errorf("intasend webhook challenge is required when intasend is configured")
	}

	if c.Payments.AmountTolerance < 0 {
		return fmt.Errorf("payment amount tolerance cannot be negative")
	}

	if c.Email.Provider != "log" && c.Email.Provider != "ses" {
		return fmt.Errorf("invalid email provider: %s (must be log or ses)", c.Email.Provider)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	if c.Orders.DeliveryFee < 0 {
		return fmt.Errorf("delivery fee cannot be negative")
	}

	if c.Orders.TxTimeout <= 0 {
		return fmt.Errorf("order transaction timeout must be positive")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration parses values such as "15s" or "720h".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated variable, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
