package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	Driver   string // mongo | memory
	MongoURI string
	MongoDB  string

	JWTSecret        string
	AuthJWKSURL      string
	JWKSCacheSeconds int
	AccessTTLMinutes int

	RedisAddr       string
	RateLimitPerMin int

	RabbitURL   string
	Exchange    string
	Queue       string
	BindKey     string
	Concurrency int

	CommentMaxLen      int
	ExpirySweepSeconds int
	DDEnabled          bool
}

// Load reads the environment, after an optional .env in the working directory.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     getenv("APP_PORT", "8080"),
		Env:      getenv("APP_ENV", "dev"),
		Driver:   getenv("STORE_DRIVER", "mongo"),
		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "posts_db"),

		JWTSecret:        getenv("JWT", ""),
		AuthJWKSURL:      getenv("AUTH_JWKS_URL", ""),
		JWKSCacheSeconds: geti("JWKS_CACHE_SECONDS", 300),
		AccessTTLMinutes: geti("ACCESS_TTL_MINUTES", 60),

		RedisAddr:       getenv("REDIS_ADDR", ""),
		RateLimitPerMin: geti("RATE_LIMIT_PER_MIN", 60),

		RabbitURL:   getenv("RABBIT_URL", ""),
		Exchange:    getenv("RABBIT_EXCHANGE", "posts.events"),
		Queue:       getenv("RABBIT_QUEUE", "posts.notify"),
		BindKey:     getenv("RABBIT_BIND_KEY", "post.*"),
		Concurrency: geti("RABBIT_CONCURRENCY", 4),

		CommentMaxLen:      geti("COMMENT_MAX_LEN", 1000),
		ExpirySweepSeconds: geti("EXPIRY_SWEEP_SECONDS", 0),
		DDEnabled:          getb("DD_ENABLED", false),
	}
}

func (c Config) Prod() bool { return c.Env == "prod" }

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMinutes) * time.Minute
}

func (c Config) JWKSCacheTTL() time.Duration {
	return time.Duration(c.JWKSCacheSeconds) * time.Second
}

// SweepEvery is zero when the expiry sweeper is off.
func (c Config) SweepEvery() time.Duration {
	if c.ExpirySweepSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ExpirySweepSeconds) * time.Second
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func geti(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getb(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
