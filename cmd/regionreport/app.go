package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/optimization-lab/regional-report/internal/core/cache"
	corecfg "github.com/optimization-lab/regional-report/internal/core/config"
	"github.com/optimization-lab/regional-report/internal/core/storage"
	"github.com/optimization-lab/regional-report/internal/core/storage/postgres"
	"github.com/optimization-lab/regional-report/internal/instrument"
	"github.com/optimization-lab/regional-report/internal/locale"
	"github.com/optimization-lab/regional-report/internal/migrations"
	"github.com/optimization-lab/regional-report/internal/orders"
	"github.com/optimization-lab/regional-report/internal/report"
	"github.com/optimization-lab/regional-report/internal/server"
	"github.com/optimization-lab/regional-report/internal/strategy"
)

const redisPingTimeout = 3 * time.Second

// app holds the opened stores and the components built on them.
type app struct {
	cfg       *corecfg.Config
	orders    storage.Store
	reference storage.Store
	cache     cache.Cache
	redis     *cache.RedisCache
}

// openStores connects both stores. Migrations run first when auto_migrate is on.
func openStores(cfg *corecfg.Config) (*app, error) {
	ordersDB, err := postgres.NewAdapter(
		instrument.StoreOrders,
		cfg.Database.OrdersDSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		return nil, err
	}

	referenceDB, err := postgres.NewAdapter(
		instrument.StoreReference,
		cfg.Database.EffectiveReferenceDSN(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		ordersDB.Close()
		return nil, err
	}

	a := &app{cfg: cfg, orders: ordersDB, reference: referenceDB}

	if cfg.Database.AutoMigrate {
		if err := a.migrate(true, migrations.Orders, migrations.Reference); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// open connects both stores and the configured cache backend.
func open(ctx context.Context, cfg *corecfg.Config) (*app, error) {
	a, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	if err := a.orders.ValidateTables(ctx, orders.DefaultOrdersTable, orders.DefaultOrderLinesTable); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.reference.ValidateTables(ctx, cfg.Reference.QualifiedTable()); err != nil {
		a.Close()
		return nil, err
	}

	a.cache, a.redis = newCache(ctx, cfg.Cache)
	slog.Info("[App] Stores ready", "cache_backend", cfg.Cache.Backend)
	return a, nil
}

// newCache builds the configured backend. Redis is shared across processes, so
// an entry written by one invocation serves the next. An unreachable server is
// not fatal: every read then counts as a miss.
func newCache(ctx context.Context, cfg corecfg.CacheConfig) (cache.Cache, *cache.RedisCache) {
	if cfg.Backend != "redis" {
		return cache.NewMemoryCache(), nil
	}

	rc := cache.OpenRedisCache(cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		slog.Warn("[App] Redis unreachable, cached fetches will miss", "addr", cfg.Redis.Addr, "error", err)
	} else {
		slog.Info("[App] Redis cache connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	}
	return rc, rc
}

// processLocalCache reports whether req asks for a cache that cannot outlive
// this process.
func processLocalCache(cfg corecfg.CacheConfig, req report.Request) bool {
	return req.UseCache && req.Mode != report.ModeJoin && cfg.Backend != "redis"
}

func (a *app) migrate(autoMigrate bool, targets ...migrations.Target) error {
	for _, target := range targets {
		db := a.orders.DB()
		if target.Name == migrations.Reference.Name {
			db = a.reference.DB()
		}
		if err := migrations.RunMigrations(db, target, autoMigrate); err != nil {
			return err
		}
	}
	return nil
}

// newReporter wires the strategies, recorder and warm-up probes.
func (a *app) newReporter() *report.Reporter {
	recorder := instrument.NewRecorder(map[string]instrument.Explainer{
		instrument.StoreOrders:    a.orders,
		instrument.StoreReference: a.reference,
	})

	configs := locale.NewStore(a.reference.DB(), a.cache, locale.Options{
		Table:    a.cfg.Reference.QualifiedTable(),
		CacheKey: a.cfg.Cache.Key,
		CacheTTL: a.cfg.Cache.TTL,
	})
	aggregator := orders.NewAggregator(a.orders.DB(), orders.Tables{})

	join := strategy.NewJoin(a.orders.DB(), recorder, strategy.JoinTables{
		Orders:     orders.DefaultOrdersTable,
		OrderLines: orders.DefaultOrderLinesTable,
		Reference:  a.cfg.Reference.EffectiveJoinTable(),
	})
	scatter := strategy.NewScatterMerge(configs, aggregator, recorder)

	return report.NewReporter(join, scatter,
		report.WarmUp{Name: instrument.StoreOrders, Probe: aggregator.Probe},
		report.WarmUp{Name: "cache", Probe: configs.ProbeCache, Optional: true},
		report.WarmUp{Name: instrument.StoreReference, Probe: configs.Probe},
	)
}

// healthCheckers lists what /health pings.
func (a *app) healthCheckers() map[string]server.HealthChecker {
	checkers := map[string]server.HealthChecker{
		instrument.StoreOrders:    a.orders,
		instrument.StoreReference: a.reference,
	}
	if a.redis != nil {
		checkers["cache"] = a.redis
	}
	return checkers
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("[App] Failed to close redis client", "error", err)
		}
	}
	if err := a.reference.Close(); err != nil {
		slog.Warn("[App] Failed to close reference store", "error", err)
	}
	if err := a.orders.Close(); err != nil {
		slog.Warn("[App] Failed to close orders store", "error", err)
	}
}
