package main

import (
	"context"
	"log/slog"

	kafkaadapter "github.com/couchcryptid/facing-direction-service/internal/adapter/kafka"
	"github.com/couchcryptid/facing-direction-service/internal/adapter/nominatim"
	"github.com/couchcryptid/facing-direction-service/internal/adapter/overpass"
	"github.com/couchcryptid/facing-direction-service/internal/cache"
	"github.com/couchcryptid/facing-direction-service/internal/config"
	"github.com/couchcryptid/facing-direction-service/internal/facing"
	"github.com/couchcryptid/facing-direction-service/internal/geo"
	"github.com/couchcryptid/facing-direction-service/internal/observability"
	"github.com/couchcryptid/facing-direction-service/internal/resolver"
	"github.com/couchcryptid/facing-direction-service/internal/strategy"
	"github.com/jonboulle/clockwork"
)

// app holds the process-wide dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	results facing.ResultCache
	redis   *cache.Redis
	writer  *kafkaadapter.Writer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(cfg)
	clock := clockwork.NewRealClock()

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
	}

	memory := cache.NewMemory(cfg.CacheSize, cfg.CacheTTL, clock)
	a.results = memory
	if cfg.RedisEnabled() {
		a.redis = cache.NewRedis(cache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.CacheTTL)
		a.results = cache.NewTiered(memory, a.redis, logger)
		logger.Info("redis result cache enabled", "addr", cfg.RedisAddr)
	}

	if cfg.KafkaEnabled() {
		a.writer = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("publishing results to kafka", "topic", cfg.KafkaResultsTopic)
	}
	return a, nil
}

// service builds the search orchestrator. When publish is set and Kafka is
// configured, every finished search is published to the results topic.
func (a *app) service(publish bool) *facing.Service {
	cfg := a.cfg
	clock := clockwork.NewRealClock()

	geocoder := cache.NewCachedGeocoder(
		nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimRateLimit, cfg.RequestTimeout, a.metrics, a.logger),
		cfg.CacheSize, cfg.CacheTTL, clock, a.metrics,
	)
	source := overpass.NewClient(cfg.OverpassURL, cfg.RequestTimeout, a.metrics, a.logger)

	offsets := geo.Offsets{
		Building:       cfg.BuildingOffset,
		Street:         cfg.StreetOffset,
		ExtendedStreet: cfg.ExtendedStreetOffset,
	}
	strategies := []strategy.Strategy{
		strategy.NewBuilding(source, offsets, a.logger),
		strategy.NewStreet(source, offsets, a.logger),
	}

	opts := []facing.Option{facing.WithStrategyTimeout(cfg.StrategyTimeout)}
	if publish && a.writer != nil {
		opts = append(opts, facing.WithPublisher(a.writer))
	}
	return facing.NewService(
		resolver.New(geocoder, cfg.GeocodeCountrySuffix, a.logger),
		strategies,
		a.results,
		a.metrics,
		a.logger,
		opts...,
	)
}

// CheckReadiness reports the result cache backend as the readiness signal.
func (a *app) CheckReadiness(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.CheckReadiness(ctx)
}

func (a *app) close() {
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", "error", err)
		}
	}
}
