package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string
	LogLevel  string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns                    int32
	KafkaConsumerGroup            string
	KafkaTopicComplaintClassified string
	KafkaTopicTicketEvents        string
	KafkaTopicWorkerEvents        string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration
	EscalationInterval   time.Duration
	ShutdownTimeout      time.Duration

	CalendarFile string
	Timezone     string

	TicketIDPrefix    string
	MaxActiveTickets  int
	AnalyticsCacheTTL time.Duration
	CacheKeyPrefix    string
	EventDedupTTL     time.Duration

	// EmbeddedWorkers runs the background loops inside the API process.
	// Required when state lives in memory.
	EmbeddedWorkers bool
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL                   string   `yaml:"postgres_url"`
		RedisURL                      string   `yaml:"redis_url"`
		KafkaBrokers                  []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup            string   `yaml:"kafka_consumer_group"`
		KafkaTopicComplaintClassified string   `yaml:"kafka_topic_complaint_classified"`
		KafkaTopicTicketEvents        string   `yaml:"kafka_topic_ticket_events"`
		KafkaTopicWorkerEvents        string   `yaml:"kafka_topic_worker_events"`
	} `yaml:"dependencies"`
	Dispatch struct {
		TicketIDPrefix     string `yaml:"ticket_id_prefix"`
		MaxActiveTickets   int    `yaml:"max_active_tickets"`
		AnalyticsCacheTTL  string `yaml:"analytics_cache_ttl"`
		EscalationInterval string `yaml:"escalation_interval"`
		CalendarFile       string `yaml:"calendar_file"`
		Timezone           string `yaml:"timezone"`
	} `yaml:"dispatch"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                     "seva-dispatch",
		LogLevel:                      "info",
		HTTPPort:                      8080,
		GRPCPort:                      9090,
		MaxDBConns:                    20,
		KafkaConsumerGroup:            "seva-dispatch",
		KafkaTopicComplaintClassified: "complaint.classified",
		KafkaTopicTicketEvents:        "dispatch.ticket_events",
		KafkaTopicWorkerEvents:        "dispatch.worker_events",
		OutboxPollInterval:            2 * time.Second,
		OutboxBatchSize:               100,
		ConsumerPollInterval:          2 * time.Second,
		EscalationInterval:            time.Hour,
		ShutdownTimeout:               10 * time.Second,
		Timezone:                      "UTC",
		TicketIDPrefix:                "CMP",
		MaxActiveTickets:              5,
		AnalyticsCacheTTL:             30 * time.Second,
		CacheKeyPrefix:                "seva:",
		EventDedupTTL:                 7 * 24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicComplaintClassified = envOrDefault("KAFKA_TOPIC_COMPLAINT_CLASSIFIED", cfg.KafkaTopicComplaintClassified)
	cfg.KafkaTopicTicketEvents = envOrDefault("KAFKA_TOPIC_TICKET_EVENTS", cfg.KafkaTopicTicketEvents)
	cfg.KafkaTopicWorkerEvents = envOrDefault("KAFKA_TOPIC_WORKER_EVENTS", cfg.KafkaTopicWorkerEvents)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = envDuration("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = envDuration("CONSUMER_POLL_INTERVAL", cfg.ConsumerPollInterval)
	cfg.EscalationInterval = envDuration("ESCALATION_INTERVAL", cfg.EscalationInterval)
	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.CalendarFile = envOrDefault("CALENDAR_FILE", cfg.CalendarFile)
	cfg.Timezone = envOrDefault("TIMEZONE", cfg.Timezone)
	cfg.TicketIDPrefix = envOrDefault("TICKET_ID_PREFIX", cfg.TicketIDPrefix)
	cfg.MaxActiveTickets = envInt("MAX_ACTIVE_TICKETS", cfg.MaxActiveTickets)
	cfg.AnalyticsCacheTTL = envDuration("ANALYTICS_CACHE_TTL", cfg.AnalyticsCacheTTL)
	cfg.CacheKeyPrefix = envOrDefault("CACHE_KEY_PREFIX", cfg.CacheKeyPrefix)
	cfg.EventDedupTTL = envDuration("EVENT_DEDUP_TTL", cfg.EventDedupTTL)
	cfg.EmbeddedWorkers = envBool("EMBEDDED_WORKERS", cfg.DatabaseURL == "")

	if cfg.MaxActiveTickets <= 0 {
		return Config{}, fmt.Errorf("max active tickets must be positive, got %d", cfg.MaxActiveTickets)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	if f.Dependencies.KafkaTopicComplaintClassified != "" {
		cfg.KafkaTopicComplaintClassified = f.Dependencies.KafkaTopicComplaintClassified
	}
	if f.Dependencies.KafkaTopicTicketEvents != "" {
		cfg.KafkaTopicTicketEvents = f.Dependencies.KafkaTopicTicketEvents
	}
	if f.Dependencies.KafkaTopicWorkerEvents != "" {
		cfg.KafkaTopicWorkerEvents = f.Dependencies.KafkaTopicWorkerEvents
	}
	if f.Dispatch.TicketIDPrefix != "" {
		cfg.TicketIDPrefix = f.Dispatch.TicketIDPrefix
	}
	if f.Dispatch.MaxActiveTickets > 0 {
		cfg.MaxActiveTickets = f.Dispatch.MaxActiveTickets
	}
	if f.Dispatch.CalendarFile != "" {
		cfg.CalendarFile = f.Dispatch.CalendarFile
	}
	if f.Dispatch.Timezone != "" {
		cfg.Timezone = f.Dispatch.Timezone
	}
	if f.Dispatch.AnalyticsCacheTTL != "" {
		d, err := time.ParseDuration(f.Dispatch.AnalyticsCacheTTL)
		if err != nil {
			return fmt.Errorf("parse analytics_cache_ttl: %w", err)
		}
		cfg.AnalyticsCacheTTL = d
	}
	if f.Dispatch.EscalationInterval != "" {
		d, err := time.ParseDuration(f.Dispatch.EscalationInterval)
		if err != nil {
			return fmt.Errorf("parse escalation_interval: %w", err)
		}
		cfg.EscalationInterval = d
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

// envDuration accepts Go duration syntax or a bare number of seconds.
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
