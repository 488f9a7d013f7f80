// Package config loads HAL's settings with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/oicur0t/hal/pkg/mtls"
	"github.com/spf13/viper"
)

// Dashboard backends
const (
	BackendNotion  = "notion"
	BackendWebhook = "webhook"
	BackendMongo   = "mongo"
	BackendMQTT    = "mqtt"
)

// AlertConfig holds alert timing
type AlertConfig struct {
	RemindInterval time.Duration `mapstructure:"remind_interval"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// MTLSConfig holds client TLS files
type MTLSConfig struct {
	CACert     string `mapstructure:"ca_cert"`
	ClientCert string `mapstructure:"client_cert"`
	ClientKey  string `mapstructure:"client_key"`
	ServerName string `mapstructure:"server_name"`
}

// Files converts to the mtls loader's input
func (c MTLSConfig) Files() mtls.Files {
	return mtls.Files{
		CACert:     c.CACert,
		ClientCert: c.ClientCert,
		ClientKey:  c.ClientKey,
		ServerName: c.ServerName,
	}
}

// NotionConfig holds Notion settings
type NotionConfig struct {
	TokenFile string        `mapstructure:"token_file"`
	Database  string        `mapstructure:"database"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// WebhookConfig holds webhook settings
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	MTLS    MTLSConfig    `mapstructure:"mtls"`
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI                string        `mapstructure:"uri"`
	Database           string        `mapstructure:"database"`
	Collection         string        `mapstructure:"collection"`
	CertificateKeyFile string        `mapstructure:"certificate_key_file"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// MQTTConfig holds broker settings
type MQTTConfig struct {
	Broker      string        `mapstructure:"broker"`
	ClientID    string        `mapstructure:"client_id"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MTLS        MTLSConfig    `mapstructure:"mtls"`
}

// DashboardConfig selects and configures the dashboard backend
type DashboardConfig struct {
	Backend string        `mapstructure:"backend"`
	Notion  NotionConfig  `mapstructure:"notion"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Mongo   MongoDBConfig `mapstructure:"mongo"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
}

// SlackConfig holds alert channel settings
type SlackConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TokenFile string `mapstructure:"token_file"`
	APIURL    string `mapstructure:"api_url"`
}

// MetricsConfig holds the metrics and health server settings
type MetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddress   string        `mapstructure:"listen_address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Config represents the complete HAL configuration
type Config struct {
	LogFolder      string          `mapstructure:"log_folder"`
	ParametersFile string          `mapstructure:"parameters_file"`
	PollInterval   time.Duration   `mapstructure:"poll_interval"`
	RequestDelay   time.Duration   `mapstructure:"request_delay"`
	RetryDelay     time.Duration   `mapstructure:"retry_delay"`
	Alert          AlertConfig     `mapstructure:"alert"`
	Dashboard      DashboardConfig `mapstructure:"dashboard"`
	Slack          SlackConfig     `mapstructure:"slack"`
	Metrics        MetricsConfig   `mapstructure:"metrics"`
	LogLevel       string          `mapstructure:"log_level"`
	LogFormat      string          `mapstructure:"log_format"`
	LogFile        string          `mapstructure:"log_file"`
	// LogMaxSize is the size in megabytes at which the log file is rotated.
	LogMaxSize int `mapstructure:"log_max_size"`
	// LogMaxAge is how many days rotated log files are kept.
	LogMaxAge int `mapstructure:"log_max_age"`
	// LogRotate rotates the log file on a fixed period, 0 disables it.
	LogRotate time.Duration `mapstructure:"log_rotate"`
}

// Load reads the configuration from a file. Environment variables override
// file values, e.g. HAL_LOG_FOLDER or HAL_DASHBOARD_BACKEND.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("hal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_folder", "")
	v.SetDefault("parameters_file", "")
	v.SetDefault("poll_interval", "150s")
	v.SetDefault("request_delay", "350ms")
	v.SetDefault("retry_delay", "30s")
	v.SetDefault("alert.remind_interval", "600s")
	v.SetDefault("alert.retry_delay", "30s")
	v.SetDefault("dashboard.backend", BackendNotion)
	v.SetDefault("dashboard.notion.token_file", "token.txt")
	v.SetDefault("dashboard.notion.database", "")
	v.SetDefault("dashboard.notion.timeout", "30s")
	v.SetDefault("dashboard.webhook.url", "")
	v.SetDefault("dashboard.webhook.timeout", "30s")
	v.SetDefault("dashboard.mongo.uri", "")
	v.SetDefault("dashboard.mongo.database", "hal")
	v.SetDefault("dashboard.mongo.collection", "parameters")
	v.SetDefault("dashboard.mongo.timeout", "10s")
	v.SetDefault("dashboard.mqtt.broker", "")
	v.SetDefault("dashboard.mqtt.client_id", "hal")
	v.SetDefault("dashboard.mqtt.topic_prefix", "hal")
	v.SetDefault("dashboard.mqtt.timeout", "5s")
	v.SetDefault("slack.enabled", true)
	v.SetDefault("slack.token_file", "slack_token.txt")
	v.SetDefault("slack.api_url", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_address", "127.0.0.1:9150")
	v.SetDefault("metrics.read_timeout", "10s")
	v.SetDefault("metrics.write_timeout", "10s")
	v.SetDefault("metrics.shutdown_timeout", "5s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size", 100)
	v.SetDefault("log_max_age", 30)
	v.SetDefault("log_rotate", "24h")
}

// Validate checks required fields and the selected backend's settings
func (c *Config) Validate() error {
	if c.LogFolder == "" {
		return fmt.Errorf("log_folder is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.RequestDelay < 0 || c.RetryDelay < 0 || c.Alert.RetryDelay < 0 || c.Alert.RemindInterval < 0 || c.LogRotate < 0 {
		return fmt.Errorf("delays and intervals must not be negative")
	}

	if c.LogMaxSize < 0 || c.LogMaxAge < 0 {
		return fmt.Errorf("log_max_size and log_max_age must not be negative")
	}

	d := c.Dashboard
	switch d.Backend {
	case BackendNotion:
		if d.Notion.TokenFile == "" {
			return fmt.Errorf("dashboard.notion.token_file is required")
		}
		if d.Notion.Database == "" {
			return fmt.Errorf("dashboard.notion.database is required")
		}
	case BackendWebhook:
		if d.Webhook.URL == "" {
			return fmt.Errorf("dashboard.webhook.url is required")
		}
	case BackendMongo:
		if d.Mongo.URI == "" {
			return fmt.Errorf("dashboard.mongo.uri is required")
		}
	case BackendMQTT:
		if d.MQTT.Broker == "" {
			return fmt.Errorf("dashboard.mqtt.broker is required")
		}
	default:
		return fmt.Errorf("dashboard.backend %q is not one of %s, %s, %s, %s",
			d.Backend, BackendNotion, BackendWebhook, BackendMongo, BackendMQTT)
	}

	if c.Slack.Enabled && c.Slack.TokenFile == "" {
		return fmt.Errorf("slack.token_file is required when slack is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics.listen_address is required when metrics are enabled")
	}
	return nil
}
