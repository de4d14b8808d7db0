package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the connection string for gorm's postgres driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	GroupPrefix string
}

// GroupID returns the consumer group for a named consumer.
func (c KafkaConfig) GroupID(name string) string {
	return c.GroupPrefix + "-" + name
}

// OSRMConfig holds routing service settings.
type OSRMConfig struct {
	BaseURL     string
	Profile     string
	Timeout     time.Duration
	SnapTimeout time.Duration
}

// SummaryConfig holds text generation service settings.
type SummaryConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	AutoSelect bool
}

// SessionConfig holds planning session settings.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MarkerSpacing float64
	MaxMarkers    int
}

// ServiceConfig holds all configuration for the routing service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	Store       string
	DBConfig    DatabaseConfig
	KafkaConfig KafkaConfig
	OSRM        OSRMConfig
	Summary     SummaryConfig
	Session     SessionConfig
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Load reads configuration from ROUTING_-prefixed environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("ROUTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		Store:  strings.ToLower(v.GetString("STORE")),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Enabled:     v.GetBool("KAFKA_ENABLED"),
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		OSRM: OSRMConfig{
			BaseURL:     v.GetString("OSRM_BASE_URL"),
			Profile:     v.GetString("OSRM_PROFILE"),
			Timeout:     v.GetDuration("OSRM_TIMEOUT"),
			SnapTimeout: v.GetDuration("SNAP_TIMEOUT"),
		},
		Summary: SummaryConfig{
			BaseURL:    v.GetString("SUMMARY_BASE_URL"),
			APIKey:     v.GetString("SUMMARY_API_KEY"),
			Model:      v.GetString("SUMMARY_MODEL"),
			MaxTokens:  v.GetInt("SUMMARY_MAX_TOKENS"),
			Timeout:    v.GetDuration("SUMMARY_TIMEOUT"),
			AutoSelect: v.GetBool("SUMMARY_AUTO_SELECT"),
		},
		Session: SessionConfig{
			TTL:           v.GetDuration("SESSION_TTL"),
			SweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),
			MarkerSpacing: v.GetFloat64("MARKER_SPACING"),
			MaxMarkers:    v.GetInt("MARKER_MAX"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE", StorePostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "routing_db")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KAFKA_ENABLED", true)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "service-routing")

	v.SetDefault("OSRM_BASE_URL", "https://router.project-osrm.org")
	v.SetDefault("OSRM_PROFILE", "driving")
	v.SetDefault("OSRM_TIMEOUT", "10s")
	v.SetDefault("SNAP_TIMEOUT", "3s")

	v.SetDefault("SUMMARY_BASE_URL", "https://api.anthropic.com")
	v.SetDefault("SUMMARY_MODEL", "claude-3-5-haiku-latest")
	v.SetDefault("SUMMARY_MAX_TOKENS", 600)
	v.SetDefault("SUMMARY_TIMEOUT", "30s")
	v.SetDefault("SUMMARY_AUTO_SELECT", false)

	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "5m")
	v.SetDefault("MARKER_SPACING", 100.0)
	v.SetDefault("MARKER_MAX", 400)
}

func (c *ServiceConfig) validate() error {
	if c.Store != StoreMemory && c.Store != StorePostgres {
		return fmt.Errorf("invalid ROUTING_STORE %q: want %s or %s", c.Store, StorePostgres, StoreMemory)
	}
	if c.OSRM.BaseURL == "" {
		return fmt.Errorf("ROUTING_OSRM_BASE_URL is required")
	}
	if c.KafkaConfig.Enabled && len(c.KafkaConfig.Brokers) == 0 {
		return fmt.Errorf("ROUTING_KAFKA_BROKERS is required when Kafka is enabled")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("ROUTING_SESSION_TTL must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("ROUTING_SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
