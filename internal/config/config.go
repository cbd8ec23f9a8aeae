package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	HTTPPort        string
	Environment     string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Store           StoreConfig
	Remote          RemoteConfig
	Session         SessionConfig
	Kafka           KafkaConfig
	Authority       AuthorityConfig
}

type StoreConfig struct {
	Driver        string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	RedisTTL      time.Duration
	SnapshotKey   string
}

type RemoteConfig struct {
	BaseURL      string
	Timeout      time.Duration
	SyncDebounce time.Duration
	MaxFailures  uint32
	OpenTimeout  time.Duration
}

// SessionConfig holds the credential cartd starts with. The authority treats the token as the
// user id, so checkout events are matched against it too.
type SessionConfig struct {
	Token string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type AuthorityConfig struct {
	Port        string
	MongoURI    string
	MongoDBName string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORE_DRIVER", StoreSQLite)
	viper.SetDefault("SYNC_DEBOUNCE", "2s")

	viper.AutomaticEnv()

	// .env is optional
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var errs []string
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnvOrViper(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return d
	}
	integer := func(key string, def int) int {
		n, err := strconv.Atoi(getEnvOrViper(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return n
	}

	cfg := &Config{
		HTTPPort:        getEnvOrViper("HTTP_PORT", "8080"),
		Environment:     getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:        getEnvOrViper("LOG_LEVEL", "info"),
		RequestTimeout:  duration("REQUEST_TIMEOUT", "30s"),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", "10s"),
		Store: StoreConfig{
			Driver:        strings.ToLower(getEnvOrViper("STORE_DRIVER", StoreSQLite)),
			SQLitePath:    getEnvOrViper("SQLITE_PATH", "storefront.db"),
			RedisAddr:     getEnvOrViper("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvOrViper("REDIS_PASSWORD", ""),
			RedisDB:       integer("REDIS_DB", 0),
			RedisPrefix:   getEnvOrViper("REDIS_PREFIX", "storefront"),
			RedisTTL:      duration("REDIS_TTL", "0s"),
			SnapshotKey:   getEnvOrViper("SNAPSHOT_KEY", "cart"),
		},
		Remote: RemoteConfig{
			BaseURL:      getEnvOrViper("REMOTE_BASE_URL", "http://localhost:8081"),
			Timeout:      duration("REMOTE_TIMEOUT", "10s"),
			SyncDebounce: duration("SYNC_DEBOUNCE", "2s"),
			MaxFailures:  uint32(integer("BREAKER_MAX_FAILURES", 5)),
			OpenTimeout:  duration("BREAKER_OPEN_TIMEOUT", "30s"),
		},
		Session: SessionConfig{
			Token: getEnvOrViper("SESSION_TOKEN", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnvOrViper("KAFKA_BROKERS", "")),
			Topic:   getEnvOrViper("CHECKOUT_TOPIC", "checkout-outbox"),
			GroupID: getEnvOrViper("KAFKA_GROUP_ID", "storefront-cart"),
		},
		Authority: AuthorityConfig{
			Port:        getEnvOrViper("AUTHORITY_PORT", "8081"),
			MongoURI:    getEnvOrViper("MONGO_URI", "mongodb://localhost:27017"),
			MongoDBName: getEnvOrViper("MONGO_DB_NAME", "storefront"),
		},
	}

	switch cfg.Store.Driver {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER: unknown driver %q", cfg.Store.Driver))
	}
	if cfg.Remote.SyncDebounce <= 0 {
		errs = append(errs, "SYNC_DEBOUNCE must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
