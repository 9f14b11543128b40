package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"queueaway/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	API           APIConfig           `yaml:"api"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	PubNub        PubNubConfig        `yaml:"pubnub"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Queue         QueueConfig         `yaml:"queue"`
	Geo           GeoConfig           `yaml:"geo"`
	Exports       ExportConfig        `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
	Caller   bool   `yaml:"caller"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig         `yaml:"cors"`
	WebSocket WebSocketConfig    `yaml:"websocket"`
}

type APIHTTPConfig struct {
	Port            int    `yaml:"port"`
	Mode            string `yaml:"mode"` // gin mode: debug, release, test
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WebSocketConfig struct {
	SendBuffer   int    `yaml:"send_buffer"`
	PingInterval string `yaml:"ping_interval"`
}

type AuthConfig struct {
	JWTSecret         string            `yaml:"jwt_secret"`
	TokenTTL          string            `yaml:"token_ttl"`
	MinPasswordLength int               `yaml:"min_password_length"`
	Google            GoogleOAuthConfig `yaml:"google"`
}

type GoogleOAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether federated login is configured.
func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type StorageConfig struct {
	Driver          string `yaml:"driver"` // local or gcs
	LocalDir        string `yaml:"local_dir"`
	PublicBaseURL   string `yaml:"public_base_url"`
	GCSBucket       string `yaml:"gcs_bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

type PubNubConfig struct {
	PublishKey   string `yaml:"publish_key"`
	SubscribeKey string `yaml:"subscribe_key"`
	SecretKey    string `yaml:"secret_key"`
	UserID       string `yaml:"user_id"`
	TokenTTL     int    `yaml:"token_ttl"` // minutes
}

func (p PubNubConfig) Enabled() bool {
	return p.PublishKey != "" && p.SubscribeKey != ""
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

type NotificationsConfig struct {
	Concurrency  int    `yaml:"concurrency"`
	MaxRetries   int    `yaml:"max_retries"`
	InitialDelay string `yaml:"initial_delay"`
	MaxDelay     string `yaml:"max_delay"`
}

type QueueConfig struct {
	// SkipSeed disables writing the demo catalogue into an empty store.
	SkipSeed bool   `yaml:"skip_seed"`
	SeedFile string `yaml:"seed_file"`
}

type GeoConfig struct {
	Timeout         string  `yaml:"timeout"`
	MaxAge          string  `yaml:"max_age"`
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "CHANGE_ME" {
		return errors.New("auth jwt secret is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch c.Storage.Driver {
	case "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket is required for gcs driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	for name, raw := range map[string]string{
		"auth.token_ttl":              c.Auth.TokenTTL,
		"geo.timeout":                 c.Geo.Timeout,
		"geo.max_age":                 c.Geo.MaxAge,
		"notifications.initial_delay": c.Notifications.InitialDelay,
		"notifications.max_delay":     c.Notifications.MaxDelay,
		"api.http.shutdown_timeout":   c.API.HTTP.ShutdownTimeout,
		"api.websocket.ping_interval": c.API.WebSocket.PingInterval,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "queueaway"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.Mode == "" {
		c.API.HTTP.Mode = "release"
	}
	if c.API.HTTP.ShutdownTimeout == "" {
		c.API.HTTP.ShutdownTimeout = "10s"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 20
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 40
	}
	if c.API.WebSocket.SendBuffer == 0 {
		c.API.WebSocket.SendBuffer = 256
	}
	if c.API.WebSocket.PingInterval == "" {
		c.API.WebSocket.PingInterval = "54s"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "168h"
	}
	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = 6
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "data/uploads"
	}
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = fmt.Sprintf("http://localhost:%d/files", c.API.HTTP.Port)
	}

	if c.PubNub.UserID == "" {
		c.PubNub.UserID = c.App.Name + "-server"
	}
	if c.PubNub.TokenTTL == 0 {
		c.PubNub.TokenTTL = 60
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "queueaway.events"
	}

	if c.Notifications.Concurrency == 0 {
		c.Notifications.Concurrency = 10
	}
	if c.Notifications.MaxRetries == 0 {
		c.Notifications.MaxRetries = 5
	}
	if c.Notifications.InitialDelay == "" {
		c.Notifications.InitialDelay = "2s"
	}
	if c.Notifications.MaxDelay == "" {
		c.Notifications.MaxDelay = "5m"
	}

	if c.Geo.Timeout == "" {
		c.Geo.Timeout = "10s"
	}
	if c.Geo.MaxAge == "" {
		c.Geo.MaxAge = "5m"
	}
	if c.Geo.DefaultRadiusKm == 0 {
		c.Geo.DefaultRadiusKm = models.DefaultRadiusKm
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "data/exports"
	}
}

// Duration parses a duration field that Validate has already checked.
func Duration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}
