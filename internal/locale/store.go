package locale

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/optimization-lab/regional-report/internal/core/cache"
	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTable    = "middleware.website_config"
	DefaultCacheKey = "website_config"
	DefaultCacheTTL = 300 * time.Second

	// PopulateTimeout bounds a shared cache load once it no longer follows
	// the caller that started it.
	PopulateTimeout = 30 * time.Second
)

// Where a fetch got its rows from.
const (
	SourceDatabase  = "database"
	SourceCache     = "cache"
	SourceCacheMiss = "database (cache miss)"
)

// Options configures a Store. Zero values fall back to the defaults above.
type Options struct {
	Table    string
	CacheKey string
	CacheTTL time.Duration
}

// FetchResult is the outcome of one ConfigStore fetch. Query is nil when no
// statement reached the reference store.
type FetchResult struct {
	Configs []sales.LocaleConfig
	Source  string
	Query   *instrument.Query
}

// Store is read-only access to the locale -> (country, language) mapping,
// optionally fronted by a TTL cache that holds the full unfiltered set.
type Store struct {
	db       *sql.DB
	cache    cache.Cache
	table    string
	cacheKey string
	ttl      time.Duration
	group    singleflight.Group
}

// NewStore creates a ConfigStore on the reference connection. c may be nil, in
// which case cached fetches degrade to live ones.
func NewStore(db *sql.DB, c cache.Cache, opts Options) *Store {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if opts.CacheKey == "" {
		opts.CacheKey = DefaultCacheKey
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Store{
		db:       db,
		cache:    c,
		table:    opts.Table,
		cacheKey: opts.CacheKey,
		ttl:      opts.CacheTTL,
	}
}

// Table returns the qualified reference table name.
func (s *Store) Table() string {
	return s.table
}

// Fetch returns the configs of country ("all" for every country).
func (s *Store) Fetch(ctx context.Context, country string, useCache bool) (FetchResult, error) {
	if useCache && s.cache == nil {
		slog.Warn("[LocaleStore] Cache requested but no cache configured, fetching live")
		useCache = false
	}

	if !useCache {
		q, err := s.buildQuery(country)
		if err != nil {
			return FetchResult{}, err
		}
		configs, err := s.query(ctx, q)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Configs: configs, Source: SourceDatabase, Query: &q}, nil
	}

	if all, ok := s.TryGet(ctx); ok {
		return FetchResult{
			Configs: sales.FilterByCountry(all, country),
			Source:  SourceCache,
		}, nil
	}

	all, q, err := s.Populate(ctx)
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{
		Configs: sales.FilterByCountry(all, country),
		Source:  SourceCacheMiss,
		Query:   q,
	}, nil
}

// TryGet reads the cached full set. Backend errors, undecodable payloads and
// payloads with duplicate locales all count as a miss.
func (s *Store) TryGet(ctx context.Context) ([]sales.LocaleConfig, bool) {
	if s.cache == nil {
		return nil, false
	}

	payload, found, err := s.cache.Get(ctx, s.cacheKey)
	if err != nil {
		slog.Warn("[LocaleStore] Cache read failed, treating as miss", "key", s.cacheKey, "error", err)
		return nil, false
	}
	if !found {
		slog.Debug("[LocaleStore] Cache miss", "key", s.cacheKey)
		return nil, false
	}

	configs, err := decodeConfigs(payload)
	if err != nil {
		slog.Warn("[LocaleStore] Corrupt cache entry, treating as miss", "key", s.cacheKey, "error", err)
		return nil, false
	}

	slog.Debug("[LocaleStore] Cache hit", "key", s.cacheKey, "configs", len(configs))
	return configs, true
}

type populated struct {
	configs []sales.LocaleConfig
	query   *instrument.Query
}

// Populate loads the full unfiltered set from the reference store and writes it
// to the cache. Concurrent callers in this process share one load; writers in
// other processes race and the last one wins. The shared load is detached from
// any single caller's cancellation and bounded by PopulateTimeout instead.
func (s *Store) Populate(ctx context.Context) ([]sales.LocaleConfig, *instrument.Query, error) {
	ch := s.group.DoChan(s.cacheKey, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PopulateTimeout)
		defer cancel()

		q, err := s.buildQuery(sales.AllCountries)
		if err != nil {
			return nil, err
		}
		configs, err := s.query(loadCtx, q)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			s.write(loadCtx, configs)
		}
		return populated{configs: configs, query: &q}, nil
	})

	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("populate locale cache: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, nil, res.Err
		}
		p := res.Val.(populated)
		return p.configs, p.query, nil
	}
}

func (s *Store) write(ctx context.Context, configs []sales.LocaleConfig) {
	payload, err := json.Marshal(configs)
	if err != nil {
		slog.Warn("[LocaleStore] Failed to encode configs for cache", "error", err)
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey, payload, s.ttl); err != nil {
		slog.Warn("[LocaleStore] Cache write failed", "key", s.cacheKey, "error", err)
		return
	}
	slog.Debug("[LocaleStore] Cache populated", "key", s.cacheKey, "configs", len(configs), "ttl", s.ttl)
}

// Probe runs a trivial statement through the reference connection.
func (s *Store) Probe(ctx context.Context) error {
	query, args, err := sq.Select("1").From(s.table).Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("build reference probe: %w", err)
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return sales.StoreError("reference probe", err)
	}
	return nil
}

// ProbeCache reads the cache key once without populating it.
func (s *Store) ProbeCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	_, _, err := s.cache.Get(ctx, s.cacheKey)
	return err
}

func (s *Store) buildQuery(country string) (instrument.Query, error) {
	builder := sq.Select("locale", "country_short", "language_name").
		From(s.table).
		OrderBy("locale").
		PlaceholderFormat(sq.Dollar)

	if !sales.IsAll(country) {
		builder = builder.Where(sq.Eq{"country_short": sales.NormalizeCountry(country)})
	}

	text, args, err := builder.ToSql()
	if err != nil {
		return instrument.Query{}, fmt.Errorf("build locale config query: %w", err)
	}
	return instrument.Query{Text: text, Args: args}, nil
}

func (s *Store) query(ctx context.Context, q instrument.Query) ([]sales.LocaleConfig, error) {
	rows, err := s.db.QueryContext(ctx, q.Text, q.Args...)
	if err != nil {
		return nil, sales.StoreError("query locale configs", err)
	}
	defer rows.Close()

	configs := []sales.LocaleConfig{}
	for rows.Next() {
		var c sales.LocaleConfig
		if err := rows.Scan(&c.Locale, &c.Country, &c.Language); err != nil {
			return nil, sales.StoreError("scan locale config", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sales.StoreError("iterate locale configs", err)
	}
	return configs, nil
}

func decodeConfigs(payload []byte) ([]sales.LocaleConfig, error) {
	var configs []sales.LocaleConfig
	if err := json.Unmarshal(payload, &configs); err != nil {
		return nil, err
	}
	if configs == nil {
		return nil, errors.New("cache payload is not a config list")
	}
	if _, err := sales.IndexByLocale(configs); err != nil {
		return nil, err
	}
	return configs, nil
}
