package main

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/optimization-lab/regional-report/internal/core/cache"
	corecfg "github.com/optimization-lab/regional-report/internal/core/config"
	"github.com/optimization-lab/regional-report/internal/locale"
	"github.com/optimization-lab/regional-report/internal/report"
	"github.com/stretchr/testify/require"
)

var allConfigsQuery = regexp.QuoteMeta("SELECT locale, country_short, language_name FROM middleware.website_config ORDER BY locale")

// fetchOnce mimics one CLI invocation: fresh connections, one cached fetch.
func fetchOnce(t *testing.T, cfg corecfg.CacheConfig, expectQuery bool) locale.FetchResult {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	if expectQuery {
		mock.ExpectQuery(allConfigsQuery).WillReturnRows(
			sqlmock.NewRows([]string{"locale", "country_short", "language_name"}).
				AddRow("ca-en", "ca", "English").
				AddRow("ca-fr", "ca", "French"))
	}

	c, rc := newCache(context.Background(), cfg)
	if rc != nil {
		defer rc.Close()
	}
	store := locale.NewStore(db, c, locale.Options{CacheKey: cfg.Key, CacheTTL: cfg.TTL})

	res, err := store.Fetch(context.Background(), "ca", true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	return res
}

func TestNewCache_DefaultBackendHitsAcrossInvocations(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg, err := corecfg.Load("")
	require.NoError(t, err)
	cfg.Cache.Redis.Addr = mr.Addr()

	first := fetchOnce(t, cfg.Cache, true)
	require.Equal(t, locale.SourceCacheMiss, first.Source)

	second := fetchOnce(t, cfg.Cache, false)
	require.Equal(t, locale.SourceCache, second.Source)
	require.Equal(t, first.Configs, second.Configs)
}

func TestNewCache_UnreachableRedisIsNotFatal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	c, rc := newCache(context.Background(), corecfg.CacheConfig{
		Backend: "redis",
		Key:     "website_config",
		TTL:     time.Minute,
		Redis:   corecfg.RedisConfig{Addr: addr},
	})
	require.NotNil(t, rc)
	defer rc.Close()

	_, _, err = c.Get(context.Background(), "website_config")
	require.Error(t, err)
}

func TestNewCache_MemoryBackend(t *testing.T) {
	c, rc := newCache(context.Background(), corecfg.CacheConfig{Backend: "memory"})
	require.Nil(t, rc)
	require.IsType(t, &cache.MemoryCache{}, c)
}

func TestProcessLocalCache(t *testing.T) {
	memory := corecfg.CacheConfig{Backend: "memory"}
	shared := corecfg.CacheConfig{Backend: "redis"}

	tests := []struct {
		name string
		cfg  corecfg.CacheConfig
		req  report.Request
		want bool
	}{
		{"memory with cached scatter-merge", memory, report.Request{Mode: report.ModeScatterMerge, UseCache: true}, true},
		{"memory with cached compare", memory, report.Request{Mode: report.ModeCompare, UseCache: true}, true},
		{"memory without cache flag", memory, report.Request{Mode: report.ModeScatterMerge}, false},
		{"memory with join only", memory, report.Request{Mode: report.ModeJoin, UseCache: true}, false},
		{"redis with cached scatter-merge", shared, report.Request{Mode: report.ModeScatterMerge, UseCache: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processLocalCache(tt.cfg, tt.req))
		})
	}
}
