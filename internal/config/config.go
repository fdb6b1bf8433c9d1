package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"rentsplit/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Ledger storage
	DataBackend string
	DataDir     string

	// Activity log (sqlite); empty disables
	ActivityDBPath string

	// AMQP; empty URL disables
	AMQPURL           string
	AMQPExchange      string
	AMQPRoutingPrefix string
	// AMQPQueue is the queue rentsplit-worker consumes from.
	AMQPQueue string

	// HTTP guards and caching
	RateLimitPerMinute int
	ArchiveCacheTTL    time.Duration
	// TrustedProxies are CIDRs, besides loopback and private ranges, whose
	// X-Forwarded-For is believed.
	TrustedProxies []string

	LogLevel string

	// SeedMates is "Name:rent,Name:rent", used when no server state exists.
	SeedMates string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "3000"),

		DataBackend: getEnv("DATA_BACKEND", "file"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		ActivityDBPath: getEnv("ACTIVITY_DB_PATH", ""),

		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "rentsplit"),
		AMQPRoutingPrefix: getEnv("AMQP_ROUTING_PREFIX", "ledger"),
		AMQPQueue:         getEnv("AMQP_QUEUE", "rentsplit.activity"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ArchiveCacheTTL:    getEnvDuration("ARCHIVE_CACHE_TTL", 10*time.Minute),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		SeedMates: getEnv("SEED_MATES", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"file", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "file" && c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty when using file backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.ArchiveCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid archive cache TTL %v: must be at least 1 second", c.ArchiveCacheTTL))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if _, err := c.Mates(); err != nil {
		errors = append(errors, err.Error())
	} else if c.DataBackend == "memory" && c.SeedMates == "" {
		errors = append(errors, "SEED_MATES is required when using memory backend")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings rentsplit-worker needs on top of
// Validate.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP_QUEUE cannot be empty")
	}
	if c.ActivityDBPath == "" {
		errors = append(errors, "ACTIVITY_DB_PATH is required for the worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Mates parses SeedMates. An empty value yields no housemates.
func (c *Config) Mates() ([]core.Housemate, error) {
	if strings.TrimSpace(c.SeedMates) == "" {
		return nil, nil
	}
	var mates []core.Housemate
	for _, part := range strings.Split(c.SeedMates, ",") {
		name, rent, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid seed housemate '%s': want Name:rent", strings.TrimSpace(part))
		}
		cents, err := core.ParseSignedDecimalToCents(rent)
		if err != nil || cents < 0 {
			return nil, fmt.Errorf("invalid rent '%s' for seed housemate %s", strings.TrimSpace(rent), name)
		}
		mates = append(mates, core.Housemate{Name: name, Rent: core.Money{Cents: cents}})
	}
	st := core.ServerState{State: core.StateActive, Mates: mates}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed housemates: %w", err)
	}
	return mates, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, skipping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
