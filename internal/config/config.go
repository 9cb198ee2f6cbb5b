package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	Server     ServerConfig
	Redis      RedisConfig
	Scylla     ScyllaConfig
	Kafka      KafkaConfig
	Clickhouse ClickhouseConfig
	Auth       AuthConfig
	Hashing    HashingConfig
	Bucketing  BucketingConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers  []string
	OTPTopic string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

// AuthConfig holds the tunables of the session protocol.
type AuthConfig struct {
	OTPTTL          time.Duration // lifetime of a pending OTP challenge
	OTPMaxAttempts  int           // failed verifications before the challenge is voided
	SessionTTL      time.Duration // refresh expiry of a session
	MaxSessions     int           // concurrently active sessions per identity
}

// HashingConfig configures the token hashing scheme. The salt is injected at
// startup so deployments can rotate it; it is shared by OTP-code and
// session-id hashing.
type HashingConfig struct {
	Salt       string
	Iterations int
}

type BucketingConfig struct {
	IdentityBuckets int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig reads configuration from the environment, with a .env file as
// fallback for local development.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		Scylla: ScyllaConfig{
			Nodes:    splitList(getEnv("SCYLLA_NODES", "localhost:9042")),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "travinhgo_auth"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			OTPTopic: getEnv("KAFKA_OTP_TOPIC", "otp-dispatch"),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "travinhgo_audit"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			OTPTTL:         getEnvDuration("OTP_TTL", 300*time.Second),
			OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
			SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
			MaxSessions:    getEnvInt("MAX_SESSIONS_PER_IDENTITY", 3),
		},
		Hashing: HashingConfig{
			Salt:       getEnv("HASH_SALT", "travinhgo-dev-salt"),
			Iterations: getEnvInt("HASH_ITERATIONS", 15000),
		},
		Bucketing: BucketingConfig{
			IdentityBuckets: getEnvInt("IDENTITY_BUCKETS", 64),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
