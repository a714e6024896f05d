package config

import (
	"fmt"
	"time"
)

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Insights      InsightsConfig          `mapstructure:"insights"`
	RateLimit     RateLimitConfig         `mapstructure:"rate_limit"`
	Audit         AuditConfig             `mapstructure:"audit"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	MCP           MCPConfig               `mapstructure:"mcp"`
	Server        ServerConfig            `mapstructure:"server"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	Plaintext      bool   `mapstructure:"plaintext"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	QueryTimeout   int    `mapstructure:"query_timeout"` // milliseconds
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// InsightsConfig tunes the smart-chat pipeline.
type InsightsConfig struct {
	// Timezone is an IANA name; day boundaries are computed in it.
	Timezone        string   `mapstructure:"timezone"`
	CacheTTL        int      `mapstructure:"cache_ttl"` // seconds
	DigestQuestions []string `mapstructure:"digest_questions"`
}

// Location resolves Timezone, falling back to time.Local.
func (i InsightsConfig) Location() (*time.Location, error) {
	if i.Timezone == "" || i.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		return nil, fmt.Errorf("insights.timezone: %w", err)
	}
	return loc, nil
}

type RateLimitConfig struct {
	// Backend is "memory" or "redis".
	Backend string                   `mapstructure:"backend"`
	Rules   map[string]RateLimitRule `mapstructure:"rules"`
}

type RateLimitRule struct {
	Limit  int `mapstructure:"limit"`
	Window int `mapstructure:"window"` // seconds
}

type AuditConfig struct {
	// Sink is "elasticsearch", "postgres" or "none".
	Sink  string `mapstructure:"sink"`
	Index string `mapstructure:"index"`
}

type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MCPConfig binds the tool server to a single tenant.
type MCPConfig struct {
	BusinessID string `mapstructure:"business_id"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}
