package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		QueueSize  int           `yaml:"queue_size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled           bool     `yaml:"enabled"`
		Brokers           []string `yaml:"brokers"`
		NotificationTopic string   `yaml:"notification_topic"`
		LogTopic          string   `yaml:"log_topic"`
		RequiredAcks      int      `yaml:"required_acks"`
		Compression       string   `yaml:"compression"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		AuditTable   string        `yaml:"audit_table"`
	} `yaml:"clickhouse"`
	Provider struct {
		BaseURL          string        `yaml:"base_url"`
		ClientID         string        `yaml:"client_id"`
		Secret           string        `yaml:"secret"`
		Timeout          time.Duration `yaml:"timeout"`
		MaxRetries       int           `yaml:"max_retries"`
		AmountConvention string        `yaml:"amount_convention"`
		PageSize         int           `yaml:"page_size"`
	} `yaml:"provider"`
	Notification struct {
		DefaultChannel string `yaml:"default_channel"`
		Mailgun        struct {
			Domain     string `yaml:"domain"`
			APIKey     string `yaml:"api_key"`
			Sender     string `yaml:"sender"`
			SenderName string `yaml:"sender_name"`
		} `yaml:"mailgun"`
		AMQP struct {
			URL      string `yaml:"url"`
			Exchange string `yaml:"exchange"`
			Queue    string `yaml:"queue"`
		} `yaml:"amqp"`
	} `yaml:"notification"`
	ModelStore struct {
		Backend         string `yaml:"backend"`
		Bucket          string `yaml:"bucket"`
		Prefix          string `yaml:"prefix"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"model_store"`
	Automation struct {
		Concurrency        int           `yaml:"concurrency"`
		GeneratorTimeout   time.Duration `yaml:"generator_timeout"`
		ForecastEnabled    bool          `yaml:"forecast_enabled"`
		ForecastSteps      int           `yaml:"forecast_steps"`
		RebalanceTolerance float64       `yaml:"rebalance_tolerance"`
		SegmentClusters    int           `yaml:"segment_clusters"`
		SnapshotTTL        time.Duration `yaml:"snapshot_ttl"`
		LockTTL            time.Duration `yaml:"lock_ttl"`
		RunsPerMinute      float64       `yaml:"runs_per_minute"`
	} `yaml:"automation"`
	Scheduler struct {
		AccountRefresh   time.Duration `yaml:"account_refresh"`
		DailyAutomations time.Duration `yaml:"daily_automations"`
		ModelTraining    time.Duration `yaml:"model_training"`
		DailySummary     time.Duration `yaml:"daily_summary"`
	} `yaml:"scheduler"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		c.Kafka.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("PROVIDER_CLIENT_ID"); v != "" {
		c.Provider.ClientID = v
	}
	if v := os.Getenv("PROVIDER_SECRET"); v != "" {
		c.Provider.Secret = v
	}
	if v := os.Getenv("MAILGUN_DOMAIN"); v != "" {
		c.Notification.Mailgun.Domain = v
	}
	if v := os.Getenv("MAILGUN_API_KEY"); v != "" {
		c.Notification.Mailgun.APIKey = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.Notification.AMQP.URL = v
	}
	if v := os.Getenv("MODEL_STORE_BUCKET"); v != "" {
		c.ModelStore.Bucket = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "fingenius"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.RetryLimit == 0 {
		c.Queue.RetryLimit = 3
	}
	if c.Queue.RetryDelay == 0 {
		c.Queue.RetryDelay = 10 * time.Second
	}
	if c.Kafka.NotificationTopic == "" {
		c.Kafka.NotificationTopic = "fingenius.notifications"
	}
	if c.ClickHouse.AuditTable == "" {
		c.ClickHouse.AuditTable = "action_audit"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Provider.AmountConvention == "" {
		c.Provider.AmountConvention = "outflow_positive"
	}
	if c.Provider.PageSize == 0 {
		c.Provider.PageSize = 500
	}
	if c.Notification.DefaultChannel == "" {
		c.Notification.DefaultChannel = "email"
	}
	if c.ModelStore.Backend == "" {
		c.ModelStore.Backend = "sqlite"
	}
	if c.Automation.Concurrency == 0 {
		c.Automation.Concurrency = 8
	}
	if c.Automation.GeneratorTimeout == 0 {
		c.Automation.GeneratorTimeout = 10 * time.Second
	}
	if c.Automation.ForecastSteps == 0 {
		c.Automation.ForecastSteps = 30
	}
	if c.Automation.RebalanceTolerance == 0 {
		c.Automation.RebalanceTolerance = 0.05
	}
	if c.Automation.SegmentClusters == 0 {
		c.Automation.SegmentClusters = 3
	}
	if c.Automation.SnapshotTTL == 0 {
		c.Automation.SnapshotTTL = time.Minute
	}
	if c.Automation.LockTTL == 0 {
		c.Automation.LockTTL = 30 * time.Second
	}
	if c.Automation.RunsPerMinute == 0 {
		c.Automation.RunsPerMinute = 6
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	if c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, "kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		errs = append(errs, "clickhouse.host is required when clickhouse is enabled")
	}
	switch c.Provider.AmountConvention {
	case "outflow_positive", "inflow_positive":
	default:
		errs = append(errs, fmt.Sprintf("provider.amount_convention must be 'outflow_positive' or 'inflow_positive', got '%s'", c.Provider.AmountConvention))
	}
	switch c.Notification.DefaultChannel {
	case "email", "sms", "in_app":
	default:
		errs = append(errs, fmt.Sprintf("notification.default_channel must be one of email, sms, in_app, got '%s'", c.Notification.DefaultChannel))
	}
	switch c.ModelStore.Backend {
	case "sqlite":
	case "gcs":
		if c.ModelStore.Bucket == "" {
			errs = append(errs, "model_store.bucket is required for the gcs backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("model_store.backend must be 'sqlite' or 'gcs', got '%s'", c.ModelStore.Backend))
	}
	if c.Automation.RebalanceTolerance < 0 || c.Automation.RebalanceTolerance >= 1 {
		errs = append(errs, "automation.rebalance_tolerance must be in [0, 1)")
	}

	if len(errs) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
