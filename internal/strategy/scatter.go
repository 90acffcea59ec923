package strategy

import (
	"context"
	"log/slog"

	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
	"github.com/optimization-lab/regional-report/internal/locale"
	"github.com/optimization-lab/regional-report/internal/orders"
)

// Leg labels of the scatter-merge strategy.
const (
	LegConfig = "config"
	LegOrders = "orders"
)

// ConfigFetcher is the ConfigStore contract the strategy depends on.
type ConfigFetcher interface {
	Fetch(ctx context.Context, country string, useCache bool) (locale.FetchResult, error)
}

// OrderAggregator is the transactional aggregation contract.
type OrderAggregator interface {
	Aggregate(ctx context.Context, r orders.Restriction) ([]sales.LocaleAggregate, *instrument.Query, error)
}

// ScatterResult holds the two independently measured legs. Rows live on Orders.
type ScatterResult struct {
	Config   *instrument.Profile
	Orders   *instrument.Profile
	Warnings []sales.Warning
}

// Rows returns the merged report rows.
func (r *ScatterResult) Rows() []sales.Row {
	if r == nil || r.Orders == nil {
		return nil
	}
	return r.Orders.Rows
}

// ScatterMerge fetches reference and fact data separately and merges them in
// process by locale.
type ScatterMerge struct {
	configs  ConfigFetcher
	orders   OrderAggregator
	recorder *instrument.Recorder
}

// NewScatterMerge creates the scatter-merge strategy.
func NewScatterMerge(configs ConfigFetcher, aggregator OrderAggregator, recorder *instrument.Recorder) *ScatterMerge {
	return &ScatterMerge{configs: configs, orders: aggregator, recorder: recorder}
}

// Run executes both legs for country. With "all" the order aggregation is not
// restricted, so the cache only ever affects the config leg.
func (s *ScatterMerge) Run(ctx context.Context, country string, useCache bool) (*ScatterResult, error) {
	var fetched locale.FetchResult
	configProfile, err := s.recorder.Measure(ctx, LegConfig, instrument.StoreReference, func(ctx context.Context) (instrument.LegResult, error) {
		var err error
		fetched, err = s.configs.Fetch(ctx, country, useCache)
		if err != nil {
			return instrument.LegResult{}, err
		}
		return instrument.LegResult{Query: fetched.Query, Source: fetched.Source}, nil
	})
	if err != nil {
		return nil, err
	}

	index, err := sales.IndexByLocale(fetched.Configs)
	if err != nil {
		return nil, err
	}

	restriction := orders.AllLocales()
	if !sales.IsAll(country) {
		locales := make([]string, 0, len(index))
		for l := range index {
			locales = append(locales, l)
		}
		restriction = orders.OnlyLocales(locales...)
	}

	var (
		rows     []sales.Row
		warnings []sales.Warning
	)
	ordersProfile, err := s.recorder.Measure(ctx, LegOrders, instrument.StoreOrders, func(ctx context.Context) (instrument.LegResult, error) {
		aggregates, q, err := s.orders.Aggregate(ctx, restriction)
		if err != nil {
			return instrument.LegResult{}, err
		}
		rows, warnings = sales.Merge(index, aggregates)
		sales.SortRows(rows)
		return instrument.LegResult{Query: q, Source: "in-process merge"}, nil
	})
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		slog.Warn("[ScatterMerge] Missing reference config, row skipped", "locale", w.Locale)
	}

	return &ScatterResult{
		Config:   configProfile,
		Orders:   ordersProfile.WithRows(rows),
		Warnings: warnings,
	}, nil
}
