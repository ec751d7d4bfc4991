package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Neo4J     Neo4JConfig     `mapstructure:"neo4j"`
	Detection DetectionConfig `mapstructure:"detection"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPPort int    `mapstructure:"http_port"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL                string        `mapstructure:"url"`
	SubjectPrefix      string        `mapstructure:"subject_prefix"`
	ConsumerGroup      string        `mapstructure:"consumer_group"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts  int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay     time.Duration `mapstructure:"reconnect_delay"`
	MaxPendingMessages int           `mapstructure:"max_pending_messages"`
	Enabled            bool          `mapstructure:"enabled"`
}

// Neo4JConfig represents the optional report-archive database configuration
type Neo4JConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
	Enabled                      bool          `mapstructure:"enabled"`
}

// DetectionConfig holds the operational thresholds of the detection engines.
// Scoring weights and the fixed pattern scores are compile-time policy and
// deliberately not configurable.
type DetectionConfig struct {
	HubDegreeLimit       int           `mapstructure:"hub_degree_limit"`
	MaxCycleDuration     time.Duration `mapstructure:"max_cycle_duration"`
	FanInThreshold       int           `mapstructure:"fan_in_threshold"`
	FanOutThreshold      int           `mapstructure:"fan_out_threshold"`
	FanTimeWindow        time.Duration `mapstructure:"fan_time_window"`
	ShellMinTransactions int           `mapstructure:"shell_min_transactions"`
	ShellMaxTransactions int           `mapstructure:"shell_max_transactions"`
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fraud-ring-analyzer")

	// Environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	// Map environment variables to nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Default values
	setDefaults()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.http_port", 8080)

	// NATS defaults
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.subject_prefix", "analysis")
	viper.SetDefault("nats.consumer_group", "fraud-ring-analyzer")
	viper.SetDefault("nats.connect_timeout", "10s")
	viper.SetDefault("nats.reconnect_attempts", 5)
	viper.SetDefault("nats.reconnect_delay", "2s")
	viper.SetDefault("nats.max_pending_messages", 1000)
	viper.SetDefault("nats.enabled", false)

	// Neo4J defaults (report archive is opt-in)
	viper.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.connect_timeout", "10s")
	viper.SetDefault("neo4j.max_connection_pool_size", 50)
	viper.SetDefault("neo4j.connection_acquisition_timeout", "60s")
	viper.SetDefault("neo4j.enabled", false)

	// Detection defaults match the documented detection policy
	viper.SetDefault("detection.hub_degree_limit", 20)
	viper.SetDefault("detection.max_cycle_duration", "168h")
	viper.SetDefault("detection.fan_in_threshold", 10)
	viper.SetDefault("detection.fan_out_threshold", 10)
	viper.SetDefault("detection.fan_time_window", "72h")
	viper.SetDefault("detection.shell_min_transactions", 2)
	viper.SetDefault("detection.shell_max_transactions", 3)

	// Bind env for NATS URL
	viper.BindEnv("nats.url", "NATS_URL")
}
