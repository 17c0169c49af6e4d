package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	MySQLDSN string

	RedisAddr    string
	DashboardTTL time.Duration

	RabbitURL  string
	EventQueue string

	WorkerCount int
	QueueSize   int

	MigrateOnStart bool
}

// Load reads configuration from the environment, with an optional .env file
// for development.
func Load() Config {
	godotenv.Load()

	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		MySQLDSN:       getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/itam?parseTime=true"),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		DashboardTTL:   getduration("DASHBOARD_CACHE_TTL", 30*time.Second),
		RabbitURL:      getenv("RABBITMQ_URL", ""),
		EventQueue:     getenv("EVENT_QUEUE", "inventory.stock.events"),
		WorkerCount:    getint("WORKER_COUNT", 4),
		QueueSize:      getint("QUEUE_SIZE", 1024),
		MigrateOnStart: getenv("MIGRATE_ON_START", "true") == "true",
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
