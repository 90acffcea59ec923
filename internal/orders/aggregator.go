package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
)

const (
	DefaultOrdersTable     = "orders"
	DefaultOrderLinesTable = "order_lines"
)

// Restriction narrows aggregation to a locale set. The zero value is unrestricted.
type Restriction struct {
	locales    []string
	restricted bool
}

// AllLocales aggregates over every locale present in the store.
func AllLocales() Restriction {
	return Restriction{}
}

// OnlyLocales aggregates over the given locales only. An empty set matches nothing.
func OnlyLocales(locales ...string) Restriction {
	set := make([]string, len(locales))
	copy(set, locales)
	sort.Strings(set)
	return Restriction{locales: set, restricted: true}
}

// Locales returns the locale set and whether the restriction applies at all.
func (r Restriction) Locales() ([]string, bool) {
	return r.locales, r.restricted
}

// Tables names the transactional tables.
type Tables struct {
	Orders     string
	OrderLines string
}

// Aggregator computes per-locale order counts and item quantities inside the
// transactional store. Individual orders never leave the database.
type Aggregator struct {
	db     *sql.DB
	tables Tables
}

// NewAggregator creates an aggregator on the transactional connection.
func NewAggregator(db *sql.DB, tables Tables) *Aggregator {
	if tables.Orders == "" {
		tables.Orders = DefaultOrdersTable
	}
	if tables.OrderLines == "" {
		tables.OrderLines = DefaultOrderLinesTable
	}
	return &Aggregator{db: db, tables: tables}
}

// Aggregate returns one row per locale with its distinct order count and summed
// line quantity, plus the statement that produced them.
func (a *Aggregator) Aggregate(ctx context.Context, r Restriction) ([]sales.LocaleAggregate, *instrument.Query, error) {
	q, err := a.buildQuery(r)
	if err != nil {
		return nil, nil, err
	}

	rows, err := a.db.QueryContext(ctx, q.Text, q.Args...)
	if err != nil {
		return nil, nil, sales.StoreError("aggregate orders", err)
	}
	defer rows.Close()

	var out []sales.LocaleAggregate
	for rows.Next() {
		var agg sales.LocaleAggregate
		if err := rows.Scan(&agg.Locale, &agg.OrderCount, &agg.ItemQty); err != nil {
			return nil, nil, sales.StoreError("scan order aggregate", err)
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, sales.StoreError("iterate order aggregates", err)
	}

	return out, &q, nil
}

// Probe runs a trivial statement through the transactional connection.
func (a *Aggregator) Probe(ctx context.Context) error {
	query, args, err := sq.Select("1").From(a.tables.Orders).Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("build orders probe: %w", err)
	}
	var one int
	err = a.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return sales.StoreError("orders probe", err)
	}
	return nil
}

func (a *Aggregator) buildQuery(r Restriction) (instrument.Query, error) {
	builder := sq.Select(
		"o.locale",
		"COUNT(DISTINCT o.id) AS order_count",
		"COALESCE(SUM(ol.qty), 0) AS item_qty",
	).
		From(a.tables.Orders + " AS o").
		Join(a.tables.OrderLines + " AS ol ON ol.order_id = o.id").
		GroupBy("o.locale").
		OrderBy("o.locale").
		PlaceholderFormat(sq.Dollar)

	// sq.Eq renders an empty slice as (1=0), so an empty set matches no rows.
	if locales, restricted := r.Locales(); restricted {
		builder = builder.Where(sq.Eq{"o.locale": locales})
	}

	text, args, err := builder.ToSql()
	if err != nil {
		return instrument.Query{}, fmt.Errorf("build order aggregate query: %w", err)
	}
	return instrument.Query{Text: text, Args: args}, nil
}
