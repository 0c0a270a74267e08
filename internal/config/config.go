package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geocoding provider.
	NominatimURL         string
	NominatimUserAgent   string
	NominatimRateLimit   float64
	GeocodeCountrySuffix string

	// Spatial feature provider.
	OverpassURL string

	// RequestTimeout bounds each outbound provider call; StrategyTimeout bounds
	// one strategy including all of its provider calls.
	RequestTimeout  time.Duration
	StrategyTimeout time.Duration

	BuildingOffset       float64
	StreetOffset         float64
	ExtendedStreetOffset float64

	CacheSize     int
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka is disabled when KafkaBrokers is empty.
	KafkaBrokers       []string
	KafkaRequestsTopic string
	KafkaResultsTopic  string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// KafkaEnabled reports whether brokers are configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// SearchBudget is the longest a single search can take: two geocoding variants,
// each waiting up to one rate-limit interval before its request, followed by
// both strategies.
func (c *Config) SearchBudget() time.Duration {
	interval := time.Duration(float64(time.Second) / c.NominatimRateLimit)
	return 2*(interval+c.RequestTimeout) + 2*c.StrategyTimeout
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parsePositiveDuration("REQUEST_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	strategyTimeout, err := parsePositiveDuration("STRATEGY_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	rateLimit, err := parsePositiveFloat("NOMINATIM_RATE_LIMIT", "1")
	if err != nil {
		return nil, err
	}
	buildingOffset, err := parsePositiveFloat("BUILDING_BBOX_OFFSET", "0.001")
	if err != nil {
		return nil, err
	}
	streetOffset, err := parsePositiveFloat("STREET_BBOX_OFFSET", "0.002")
	if err != nil {
		return nil, err
	}
	extendedOffset, err := parsePositiveFloat("EXTENDED_STREET_BBOX_OFFSET", "0.003")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", "1000")
	if err != nil {
		return nil, err
	}
	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NominatimURL:         sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent:   sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "facing-direction-service/1.0"),
		NominatimRateLimit:   rateLimit,
		GeocodeCountrySuffix: countrySuffix(),

		OverpassURL: sharedcfg.EnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),

		RequestTimeout:  requestTimeout,
		StrategyTimeout: strategyTimeout,

		BuildingOffset:       buildingOffset,
		StreetOffset:         streetOffset,
		ExtendedStreetOffset: extendedOffset,

		CacheSize:     cacheSize,
		CacheTTL:      cacheTTL,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers:       brokers,
		KafkaRequestsTopic: sharedcfg.EnvOrDefault("KAFKA_REQUESTS_TOPIC", "facing-requests"),
		KafkaResultsTopic:  sharedcfg.EnvOrDefault("KAFKA_RESULTS_TOPIC", "facing-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "facing-worker"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.NominatimUserAgent == "" {
		return nil, errors.New("NOMINATIM_USER_AGENT is required")
	}
	if !(cfg.BuildingOffset < cfg.StreetOffset && cfg.StreetOffset < cfg.ExtendedStreetOffset) {
		return nil, errors.New("bbox offsets must satisfy BUILDING_BBOX_OFFSET < STREET_BBOX_OFFSET < EXTENDED_STREET_BBOX_OFFSET")
	}
	if cfg.KafkaEnabled() && cfg.KafkaRequestsTopic == "" {
		return nil, errors.New("KAFKA_REQUESTS_TOPIC is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaResultsTopic == "" {
		return nil, errors.New("KAFKA_RESULTS_TOPIC is required")
	}

	return cfg, nil
}

// countrySuffix distinguishes an explicitly empty GEOCODE_COUNTRY_SUFFIX, which
// disables the suffixed query variant, from an unset one.
func countrySuffix() string {
	if v, ok := os.LookupEnv("GEOCODE_COUNTRY_SUFFIX"); ok {
		return v
	}
	return ", USA"
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parsePositiveFloat(name, def string) (float64, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(name, def), 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return f, nil
}

func parsePositiveInt(name, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(name, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
