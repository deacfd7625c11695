package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	// DBDriver memilih backend penyimpanan pasien: mysql, sqlite atau rest.
	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string
	RestURL    string

	JWTSecret string
	JWTTTL    time.Duration

	AdminUsername   string
	AdminPassword   string
	DefaultFacility string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MonitorPollInterval  time.Duration
	MonitorSlideInterval time.Duration
	MonitorAutoClear     bool
	MonitorAutoClearSecs int

	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	SlidesBucket    string
	SlidesRegion    string
	SlidesEndpoint  string
	SlidesPrefix    string
	SlidesPublicURL string
	SlidesPathStyle bool
	SlidesAccessKey string
	SlidesSecretKey string
}

var (
	cfg  *Config
	once sync.Once
)

// LoadConfig membaca .env sekali dan mengembalikan konfigurasi yang sama untuk seluruh proses.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Warn().Msg(".env file not found, relying on environment variables")
		}
		cfg = Load()
	})
	return cfg
}

// Load membangun Config dari environment saat ini tanpa cache.
func Load() *Config {
	return &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "4303"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     os.Getenv("DB_NAME"),
		SQLitePath: getEnv("SQLITE_PATH", "bematende.db"),
		RestURL:    getEnv("REST_BASE_URL", "http://localhost:3000"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getDuration("JWT_TTL", 12*time.Hour),

		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		DefaultFacility: getEnv("DEFAULT_FACILITY", "Itaim"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		MonitorPollInterval:  getDuration("MONITOR_POLL_INTERVAL", 2*time.Second),
		MonitorSlideInterval: getDuration("MONITOR_SLIDE_INTERVAL", 8*time.Second),
		MonitorAutoClear:     getBool("MONITOR_AUTO_CLEAR", false),
		MonitorAutoClearSecs: getInt("MONITOR_AUTO_CLEAR_SECONDS", 15),

		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "bematende-backend"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "bematende"),

		SlidesBucket:    os.Getenv("SLIDES_S3_BUCKET"),
		SlidesRegion:    getEnv("SLIDES_S3_REGION", "us-east-1"),
		SlidesEndpoint:  os.Getenv("SLIDES_S3_ENDPOINT"),
		SlidesPrefix:    getEnv("SLIDES_S3_PREFIX", "campaign-"),
		SlidesPublicURL: os.Getenv("SLIDES_PUBLIC_URL"),
		SlidesPathStyle: getBool("SLIDES_S3_PATH_STYLE", false),
		SlidesAccessKey: os.Getenv("SLIDES_S3_ACCESS_KEY"),
		SlidesSecretKey: os.Getenv("SLIDES_S3_SECRET_KEY"),
	}
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getDuration menerima format Go ("2s", "500ms") atau angka detik polos.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
	return fallback
}
