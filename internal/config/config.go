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
	Server  ServerConfig
	App     AppConfig
	Cache   CacheConfig
	Storage StorageConfig
	Remote  RemoteConfig
	Sync    SyncConfig
	Pending PendingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"300s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"stockcount-api"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Debug       bool     `envconfig:"APP_DEBUG" default:"false"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKeys     []string `envconfig:"API_KEYS"` // comma separated; empty disables auth
}

// CacheConfig holds settings for the resolver result cache and redis.
type CacheConfig struct {
	TTL time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"stockcount"`
}

// StorageConfig selects the durable snapshot backend.
type StorageConfig struct {
	Type string `envconfig:"STORAGE_TYPE" default:"sqlite"` // sqlite, postgres, mysql, redis, badger, mongodb, memory
	Path string `envconfig:"STORAGE_PATH" default:"./data/snapshots.db"`
	// Badger settings
	BadgerDir string `envconfig:"BADGER_DIR" default:"./data/badger"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"STORAGE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORAGE_DB_PORT" default:"5432"`
	Name     string `envconfig:"STORAGE_DB_NAME" default:"stockcount"`
	User     string `envconfig:"STORAGE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORAGE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORAGE_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI             string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase        string `envconfig:"MONGODB_DATABASE" default:"stockcount"`
	MongoCollection      string `envconfig:"MONGODB_COLLECTION" default:"cache_snapshots"`
	MongoAuditCollection string `envconfig:"MONGODB_AUDIT_COLLECTION" default:"audit_log"`
}

// RemoteConfig holds settings for the remote table API.
type RemoteConfig struct {
	BaseURL           string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:8090"`
	Token             string        `envconfig:"REMOTE_TOKEN" default:""`
	ComparisonTableID string        `envconfig:"REMOTE_COMPARISON_TABLE" default:"tab_inventi"`
	ResultsTableID    string        `envconfig:"REMOTE_RESULTS_TABLE" default:"tab_inventic"`
	LookupTableID     string        `envconfig:"REMOTE_LOOKUP_TABLE" default:"pcprodut"`
	UsersTableID      string        `envconfig:"REMOTE_USERS_TABLE" default:"usuarios"`
	ConnectTimeout    time.Duration `envconfig:"REMOTE_CONNECT_TIMEOUT" default:"10s"`
	ReadTimeout       time.Duration `envconfig:"REMOTE_READ_TIMEOUT" default:"15s"`
	RequestTimeout    time.Duration `envconfig:"REMOTE_REQUEST_TIMEOUT" default:"15s"`
	RatePerSecond     float64       `envconfig:"REMOTE_RATE_PER_SECOND" default:"20"`
	Burst             int           `envconfig:"REMOTE_BURST" default:"5"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	PageSize   int           `envconfig:"SYNC_PAGE_SIZE" default:"1000"`
	MaxPages   int           `envconfig:"SYNC_MAX_PAGES" default:"1000"`
	UsersLimit int           `envconfig:"SYNC_USERS_LIMIT" default:"1000"`
	ChunkSize  int           `envconfig:"SYNC_LOOKUP_CHUNK" default:"100"`
	Interval   time.Duration `envconfig:"SYNC_INTERVAL" default:"0s"` // 0 disables the scheduler
}

// PendingConfig selects the pending-item store.
type PendingConfig struct {
	Type          string        `envconfig:"PENDING_TYPE" default:"snapshot"` // snapshot or redis
	FlushInterval time.Duration `envconfig:"PENDING_FLUSH_INTERVAL" default:"0s"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StorageConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StorageConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
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
	if cfg.Sync.PageSize <= 0 {
		return nil, fmt.Errorf("SYNC_PAGE_SIZE must be positive, got %d", cfg.Sync.PageSize)
	}
	if cfg.Sync.ChunkSize <= 0 {
		return nil, fmt.Errorf("SYNC_LOOKUP_CHUNK must be positive, got %d", cfg.Sync.ChunkSize)
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
