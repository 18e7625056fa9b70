package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// NotifyPolicy selects what happens to the notify step after an order is placed.
type NotifyPolicy string

const (
	NotifyBestEffort NotifyPolicy = "best-effort"
	NotifyOutbox     NotifyPolicy = "outbox"
	NotifyNone       NotifyPolicy = "none"
)

// NotifySink selects where the outbox poller delivers notify events.
type NotifySink string

const (
	SinkGraphQL NotifySink = "graphql"
	SinkKafka   NotifySink = "kafka"
)

type Config struct {
	APIURL      string
	AuthURL     string
	HTTPTimeout time.Duration

	DBPath    string
	Ephemeral bool

	NoticeTTL time.Duration

	NotifyPolicy      NotifyPolicy
	NotifySink        NotifySink
	KafkaBrokers      []string
	KafkaTopic        string
	OutboxTick        time.Duration
	OutboxMaxAttempts int

	RedisAddr     string
	RedisPassword string
	CatalogTTL    time.Duration

	LogLevel        string
	EnableTracing   bool
	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		APIURL:        getEnv("API_URL", "http://localhost:8000/graphql/"),
		AuthURL:       getEnv("AUTH_URL", "http://localhost:8000/auth/"),
		DBPath:        getEnv("DB_PATH", "./storefront.db"),
		NotifyPolicy:  NotifyPolicy(getEnv("NOTIFY_POLICY", string(NotifyBestEffort))),
		NotifySink:    NotifySink(getEnv("NOTIFY_SINK", string(SinkGraphQL))),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "storefront-orders"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.NoticeTTL, err = getDuration("NOTICE_TTL", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxTick, err = getDuration("OUTBOX_TICK", time.Second); err != nil {
		return nil, err
	}
	if cfg.CatalogTTL, err = getDuration("CATALOG_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxMaxAttempts, err = getInt("OUTBOX_MAX_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.Ephemeral, err = getBool("STOREFRONT_EPHEMERAL", false); err != nil {
		return nil, err
	}
	if cfg.EnableTracing, err = getBool("ENABLE_TRACING", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.NotifyPolicy {
	case NotifyBestEffort, NotifyOutbox, NotifyNone:
	default:
		return fmt.Errorf("invalid NOTIFY_POLICY %q", c.NotifyPolicy)
	}
	switch c.NotifySink {
	case SinkGraphQL, SinkKafka:
	default:
		return fmt.Errorf("invalid NOTIFY_SINK %q", c.NotifySink)
	}
	if c.NotifySink == SinkKafka && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when NOTIFY_SINK=kafka")
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive, got %d", c.OutboxMaxAttempts)
	}
	if c.APIURL == "" {
		return fmt.Errorf("API_URL must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
