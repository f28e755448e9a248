package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr               string
	DatabasePath       string
	PaymentURLTemplate string
	Redis              RedisConfig
	RateLimit          RateLimitConfig
}

// RedisConfig controls the optional Redis connection used by the rate
// limiter. An empty URL disables Redis and the in-memory fallback is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig bounds public submission traffic per client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// defaultPaymentURLTemplate matches the bitpay merchant link the site used;
// %s is replaced with the donation amount.
const defaultPaymentURLTemplate = "https://www.bitpay.co.il/app/me/14D6AE95-19DD-340D-BE3D-1EB146D9A0B420D2?amount=%s"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GMARUP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dbPath := os.Getenv("GMARUP_DB_PATH")
	if dbPath == "" {
		dbPath = "database/leads.db"
	}

	paymentURL := os.Getenv("GMARUP_PAYMENT_URL_TEMPLATE")
	if paymentURL == "" {
		paymentURL = defaultPaymentURLTemplate
	}

	return Server{
		Addr:               addr,
		DatabasePath:       dbPath,
		PaymentURLTemplate: paymentURL,
		Redis: RedisConfig{
			URL:          os.Getenv("GMARUP_REDIS_URL"),
			PoolSize:     envInt("GMARUP_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("GMARUP_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("GMARUP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("GMARUP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("GMARUP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests: envInt("GMARUP_RATE_LIMIT_REQUESTS", 30),
			Window:   envDuration("GMARUP_RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
