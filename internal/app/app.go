// Package app wires the shared insights stack used by both binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"crm-insights/internal/common/audit"
	"crm-insights/internal/common/config"
	"crm-insights/internal/common/database"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/common/observability"
	"crm-insights/internal/common/ratelimit"
	"crm-insights/internal/insights/chat"
	"crm-insights/internal/insights/daterange"
	"crm-insights/internal/insights/dispatch"
	"crm-insights/internal/store"
)

// Connector retries a named startup step.
type Connector func(name string, op func() error) error

// Once is a Connector that does not retry.
func Once(_ string, op func() error) error { return op() }

type Deps struct {
	Config        *config.Config
	Logger        logger.Logger
	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Store         *store.PostgresStore
	SegmentCache  *store.SegmentCache
	Limiter       ratelimit.Limiter
	Audit         audit.Sink
	Resolver      *daterange.Resolver
	Dispatcher    *dispatch.Dispatcher
	Engine        *chat.Engine
	Observability *observability.Observability
}

// Build connects the backing stores and assembles the insights engine.
// Redis is optional unless the redis rate limiter is configured.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer, connect Connector) (*Deps, error) {
	if connect == nil {
		connect = Once
	}
	d := &Deps{Config: cfg, Logger: log}

	obs, err := observability.New(cfg.App.Name, reg)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	d.Observability = obs

	err = connect("PostgreSQL connection", func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		d.Postgres = pg
		return nil
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	if cfg.Database.Postgres.AutoMigrate {
		if err := d.Postgres.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	if cfg.Database.Redis.Address != "" {
		err = connect("Redis connection", func() error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			d.Redis = rc
			return nil
		})
		if err != nil {
			if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
				d.Close()
				return nil, err
			}
			log.Warn("Redis unavailable, segment cache disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	if cfg.Audit.Sink == config.AuditSinkElasticsearch {
		err = connect("Elasticsearch connection", func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(); err != nil {
				return err
			}
			d.Elasticsearch = es
			return nil
		})
		if err != nil {
			d.Close()
			return nil, err
		}
		if err := d.Elasticsearch.EnsureIndex(ctx, cfg.Audit.Index); err != nil {
			d.Close()
			return nil, fmt.Errorf("ensure audit index: %w", err)
		}
	}

	loc, err := cfg.Insights.Location()
	if err != nil {
		d.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if d.Redis != nil {
		redisClient = d.Redis.GetClient()
		d.SegmentCache = store.NewSegmentCache(redisClient, time.Duration(cfg.Insights.CacheTTL)*time.Second, log)
	}

	d.Limiter = NewLimiter(cfg.RateLimit, redisClient, log)
	d.Audit = NewAuditSink(cfg.Audit, d.Postgres, d.Elasticsearch)
	d.Store = store.NewPostgresStore(d.Postgres.GetDB(), config.GetDuration(cfg.Database.Postgres.QueryTimeout), loc)
	d.Resolver = daterange.NewResolver(loc)
	d.Dispatcher = dispatch.New(d.Store, d.Resolver, log, dispatch.WithAuditSink(d.Audit))
	d.Engine = chat.NewEngine(
		d.Dispatcher,
		d.Observability,
		log,
	)
	return d, nil
}

// Rules converts configured rate-limit rules.
func Rules(cfg config.RateLimitConfig) ratelimit.Rules {
	rules := make(ratelimit.Rules, len(cfg.Rules))
	for action, r := range cfg.Rules {
		rules[action] = ratelimit.Rule{Limit: r.Limit, Window: r.WindowDuration()}
	}
	return rules
}

// NewLimiter picks the limiter backend. The redis backend falls back to memory without a client.
func NewLimiter(cfg config.RateLimitConfig, client *redis.Client, log logger.Logger) ratelimit.Limiter {
	rules := Rules(cfg)
	if cfg.Backend == config.RateLimitBackendRedis && client != nil {
		return ratelimit.NewRedisLimiter(client, rules, log)
	}
	return ratelimit.NewMemoryLimiter(rules)
}

// NewAuditSink picks the audit sink. Missing clients degrade to NopSink.
func NewAuditSink(cfg config.AuditConfig, pg *database.PostgresClient, es *database.ElasticsearchClient) audit.Sink {
	switch cfg.Sink {
	case config.AuditSinkElasticsearch:
		if es != nil {
			return audit.NewElasticsearchSink(es.Client, cfg.Index)
		}
	case config.AuditSinkPostgres:
		if pg != nil {
			return audit.NewPostgresSink(pg.GetDB())
		}
	}
	return audit.NopSink{}
}

// Close drains pending audit writes and releases connections. Safe on a
// partially built Deps.
func (d *Deps) Close() {
	if d.Dispatcher != nil {
		d.Dispatcher.Wait()
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.Postgres != nil {
		d.Postgres.Close()
	}
	d.Observability.Shutdown()
}
