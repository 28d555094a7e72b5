package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	LocalDriverMemory = "memory"
	LocalDriverFile   = "file"
	LocalDriverRedis  = "redis"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// Локальный уровень корзины
	LocalDriver string
	LocalDir    string
	RedisAddr   string
	RedisTTL    time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	// Очередь синхронизации удалённой корзины
	SyncQueueSize   int
	SyncMaxAttempts int
	SyncRetryDelay  time.Duration

	// Выгрузка простаивающих корзин из памяти
	CartIdleTTL       time.Duration
	CartJanitorPeriod time.Duration

	RemoteFetchTimeout time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		LocalDriver:         LocalDriverMemory,
		LocalDir:            "./data/carts",
		RedisAddr:           "localhost:6379",
		RedisTTL:            30 * 24 * time.Hour,
		KafkaTopic:          kafka.TopicOrderEvents,
		SyncQueueSize:       256,
		SyncMaxAttempts:     1,
		SyncRetryDelay:      50 * time.Millisecond,
		CartIdleTTL:         30 * time.Minute,
		CartJanitorPeriod:   time.Minute,
		RemoteFetchTimeout:  10 * time.Second,
		RequestTimeout:      30 * time.Second,
		ShutdownTimeout:     10 * time.Second,
	}
}

// LookupFunc: источник переменных окружения (os.LookupEnv в main).
type LookupFunc func(key string) (string, bool)

// LoadConfig накладывает переменные окружения на DefaultConfig и проверяет результат.
func LoadConfig(lookup LookupFunc) (Config, error) {
	cfg := DefaultConfig()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("STOREFRONT_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := get("STOREFRONT_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("STOREFRONT_STORAGE_DRIVER"); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := get("STOREFRONT_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get("STOREFRONT_LOCAL_DRIVER"); ok {
		cfg.LocalDriver = strings.ToLower(v)
	}
	if v, ok := get("STOREFRONT_LOCAL_DIR"); ok {
		cfg.LocalDir = v
	}
	if v, ok := get("STOREFRONT_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitBrokers(v)
	}
	if v, ok := get("STOREFRONT_KAFKA_TOPIC"); ok {
		cfg.KafkaTopic = v
	}

	var errs []error
	if v, ok := get("STOREFRONT_POSTGRES_AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, wrapEnv("STOREFRONT_POSTGRES_AUTO_MIGRATE", err))
		cfg.PostgresAutoMigrate = b
	}
	if v, ok := get("STOREFRONT_SYNC_QUEUE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, wrapEnv("STOREFRONT_SYNC_QUEUE_SIZE", err))
		cfg.SyncQueueSize = n
	}
	if v, ok := get("STOREFRONT_SYNC_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, wrapEnv("STOREFRONT_SYNC_MAX_ATTEMPTS", err))
		cfg.SyncMaxAttempts = n
	}
	if v, ok := get("STOREFRONT_SYNC_RETRY_DELAY"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, wrapEnv("STOREFRONT_SYNC_RETRY_DELAY", err))
		cfg.SyncRetryDelay = d
	}
	if v, ok := get("STOREFRONT_REDIS_TTL"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, wrapEnv("STOREFRONT_REDIS_TTL", err))
		cfg.RedisTTL = d
	}
	if v, ok := get("STOREFRONT_CART_IDLE_TTL"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, wrapEnv("STOREFRONT_CART_IDLE_TTL", err))
		cfg.CartIdleTTL = d
	}
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http addr is required"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("STOREFRONT_POSTGRES_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver: %q", c.StorageDriver))
	}

	switch c.LocalDriver {
	case LocalDriverMemory:
	case LocalDriverFile:
		if c.LocalDir == "" {
			errs = append(errs, errors.New("STOREFRONT_LOCAL_DIR is required for file local tier"))
		}
	case LocalDriverRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("STOREFRONT_REDIS_ADDR is required for redis local tier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported local driver: %q", c.LocalDriver))
	}

	if c.SyncQueueSize <= 0 {
		errs = append(errs, errors.New("sync queue size must be positive"))
	}
	if c.SyncMaxAttempts <= 0 {
		errs = append(errs, errors.New("sync max attempts must be positive"))
	}
	if c.SyncRetryDelay < 0 {
		errs = append(errs, errors.New("sync retry delay must not be negative"))
	}
	if c.CartIdleTTL <= 0 {
		errs = append(errs, errors.New("cart idle ttl must be positive"))
	}
	if c.CartJanitorPeriod <= 0 {
		errs = append(errs, errors.New("cart janitor period must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func wrapEnv(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}
