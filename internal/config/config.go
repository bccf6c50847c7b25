package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Scanner   ScannerConfig
	Order     OrderConfig
	CatalogDB CatalogDBConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Events    EventsConfig
	Serial    SerialConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"orderscan-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin dashboard login key
}

// ScannerConfig holds scan buffer settings.
type ScannerConfig struct {
	// Timeout is the inter-keystroke timeout. A gap longer than 2x this
	// value starts a new scan; no keystroke within it clears the buffer.
	Timeout    time.Duration `envconfig:"SCAN_TIMEOUT" default:"100ms"`
	MinLength  int           `envconfig:"SCAN_MIN_LENGTH" default:"8"`
	MaxLength  int           `envconfig:"SCAN_MAX_LENGTH" default:"20"`
	SessionTTL time.Duration `envconfig:"SCAN_SESSION_TTL" default:"30m"`
}

// OrderConfig holds order state settings.
type OrderConfig struct {
	// DebounceInterval coalesces rapid state changes into one store write.
	DebounceInterval time.Duration `envconfig:"ORDER_DEBOUNCE" default:"100ms"`
	StatePath        string        `envconfig:"ORDER_STATE_PATH" default:"./data/orderstate.db"`
}

// CatalogDBConfig holds product catalog database settings.
type CatalogDBConfig struct {
	Type string `envconfig:"CATALOG_DB_TYPE" default:"sqlite"` // sqlite, postgres, or mysql
	Path string `envconfig:"CATALOG_DB_PATH" default:"./data/catalog.db"`
	// PostgreSQL settings
	Host     string `envconfig:"CATALOG_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CATALOG_DB_PORT" default:"5432"`
	Name     string `envconfig:"CATALOG_DB_NAME" default:"orderscan"`
	User     string `envconfig:"CATALOG_DB_USER" default:"postgres"`
	Password string `envconfig:"CATALOG_DB_PASS" default:""`
	SSLMode  string `envconfig:"CATALOG_DB_SSLMODE" default:"disable"`
}

// DatabaseConfig holds MySQL connection settings (terminal accounts,
// and the catalog when CATALOG_DB_TYPE=mysql).
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"orderscan"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// CacheConfig holds catalog cache and Redis settings.
type CacheConfig struct {
	TTL time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// EventsConfig holds scan-event log settings.
type EventsConfig struct {
	Path            string        `envconfig:"EVENTS_DB_PATH" default:"./data/events.db"`
	FlushInterval   time.Duration `envconfig:"EVENTS_FLUSH_INTERVAL" default:"30s"`
	RetentionMaxAge time.Duration `envconfig:"EVENTS_RETENTION_MAX_AGE" default:"2160h"` // 90 days
	CleanupInterval time.Duration `envconfig:"EVENTS_CLEANUP_INTERVAL" default:"24h"`

	KafkaEnabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC_SCANS" default:"scan-events"`
	KafkaAcks    string   `envconfig:"KAFKA_ACKS" default:"all"`
	KafkaRetries int      `envconfig:"KAFKA_RETRIES" default:"3"`
}

// SerialConfig holds hardware scanner serial port settings.
type SerialConfig struct {
	Enabled    bool   `envconfig:"SERIAL_ENABLED" default:"false"`
	Port       string `envconfig:"SERIAL_PORT" default:"/dev/ttyUSB0"`
	BaudRate   int    `envconfig:"SERIAL_BAUD_RATE" default:"9600"`
	CustomerID string `envconfig:"SERIAL_CUSTOMER_ID" default:""`
	BrandID    string `envconfig:"SERIAL_BRAND_ID" default:""`
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *CatalogDBConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
