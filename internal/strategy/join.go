package strategy

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
	"github.com/optimization-lab/regional-report/internal/locale"
	"github.com/optimization-lab/regional-report/internal/orders"
)

// LegJoin labels the single leg of the join strategy.
const LegJoin = "join"

// JoinTables names the tables the cross-store query touches. Reference must be
// reachable from the transactional connection: a schema-qualified table, a
// foreign table, or any other federated name.
type JoinTables struct {
	Orders     string
	OrderLines string
	Reference  string
}

// Join computes the report with one cross-store query. It always reads the live
// reference table and never consults the cache; it is the baseline.
type Join struct {
	db       *sql.DB
	recorder *instrument.Recorder
	tables   JoinTables
}

// NewJoin creates the join strategy on the transactional connection. Empty
// table names fall back to the defaults of the orders and locale packages.
func NewJoin(db *sql.DB, recorder *instrument.Recorder, tables JoinTables) *Join {
	if tables.Orders == "" {
		tables.Orders = orders.DefaultOrdersTable
	}
	if tables.OrderLines == "" {
		tables.OrderLines = orders.DefaultOrderLinesTable
	}
	if tables.Reference == "" {
		tables.Reference = locale.DefaultTable
	}
	return &Join{db: db, recorder: recorder, tables: tables}
}

// Run executes the join for country ("all" for no filter) as one measured leg.
func (j *Join) Run(ctx context.Context, country string) (*instrument.Profile, error) {
	q, err := j.buildQuery(country)
	if err != nil {
		return nil, err
	}

	var rows []sales.Row
	profile, err := j.recorder.Measure(ctx, LegJoin, instrument.StoreOrders, func(ctx context.Context) (instrument.LegResult, error) {
		var qerr error
		rows, qerr = j.query(ctx, q)
		if qerr != nil {
			return instrument.LegResult{}, qerr
		}
		return instrument.LegResult{Query: &q, Source: "cross-store join"}, nil
	})
	if err != nil {
		return nil, err
	}

	sales.SortRows(rows)
	return profile.WithRows(rows), nil
}

func (j *Join) buildQuery(country string) (instrument.Query, error) {
	builder := sq.Select(
		"wc.country_short",
		"wc.language_name",
		"COUNT(DISTINCT o.id) AS total_orders",
		"COALESCE(SUM(ol.qty), 0) AS total_items_sold",
	).
		From(j.tables.Orders + " AS o").
		Join(j.tables.Reference + " AS wc ON o.locale = wc.locale").
		Join(j.tables.OrderLines + " AS ol ON o.id = ol.order_id").
		GroupBy("wc.country_short", "wc.language_name").
		OrderBy("wc.country_short", "wc.language_name").
		PlaceholderFormat(sq.Dollar)

	if !sales.IsAll(country) {
		builder = builder.Where(sq.Eq{"wc.country_short": sales.NormalizeCountry(country)})
	}

	text, args, err := builder.ToSql()
	if err != nil {
		return instrument.Query{}, fmt.Errorf("build join query: %w", err)
	}
	return instrument.Query{Text: text, Args: args}, nil
}

func (j *Join) query(ctx context.Context, q instrument.Query) ([]sales.Row, error) {
	rows, err := j.db.QueryContext(ctx, q.Text, q.Args...)
	if err != nil {
		return nil, sales.StoreError("cross-store join", err)
	}
	defer rows.Close()

	var out []sales.Row
	for rows.Next() {
		var r sales.Row
		if err := rows.Scan(&r.Country, &r.Language, &r.OrderCount, &r.ItemsSold); err != nil {
			return nil, sales.StoreError("scan join row", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, sales.StoreError("iterate join rows", err)
	}
	return out, nil
}
