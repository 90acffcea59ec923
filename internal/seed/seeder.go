package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/optimization-lab/regional-report/internal/core/sales"
)

// Options sizes the generated data set.
type Options struct {
	Orders           int
	Products         int
	MaxLinesPerOrder int
	MaxQty           int
	RandomSeed       int64
	// Locales to spread orders over. Empty means every locale of ReferenceTable.
	Locales        []string
	ReferenceTable string
}

// Summary reports what a run inserted.
type Summary struct {
	Products int
	Orders   int
	Lines    int
	Locales  []string
}

// Seeder generates demo products, orders and order lines. Runs with the same
// RandomSeed produce the same locales, line counts and quantities. Part and
// order numbers are unique columns, so they are drawn fresh on every run.
type Seeder struct {
	orders    *sql.DB
	reference *sql.DB
	opts      Options
	rng       *rand.Rand
	nowFn     func() time.Time
	newID     func() uuid.UUID
}

func New(ordersDB, referenceDB *sql.DB, opts Options) *Seeder {
	if opts.MaxLinesPerOrder <= 0 {
		opts.MaxLinesPerOrder = 2
	}
	if opts.MaxQty <= 0 {
		opts.MaxQty = 5
	}
	if opts.ReferenceTable == "" {
		opts.ReferenceTable = "middleware.website_config"
	}
	return &Seeder{
		orders:    ordersDB,
		reference: referenceDB,
		opts:      opts,
		rng:       rand.New(rand.NewSource(opts.RandomSeed)),
		nowFn:     time.Now,
		newID:     uuid.New,
	}
}

func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	locales, err := s.locales(ctx)
	if err != nil {
		return summary, err
	}
	if len(locales) == 0 {
		return summary, fmt.Errorf("no locales to seed: %s is empty", s.opts.ReferenceTable)
	}
	summary.Locales = locales

	tx, err := s.orders.BeginTx(ctx, nil)
	if err != nil {
		return summary, sales.StoreError("begin seed transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := s.nowFn().UTC()

	productIDs, err := s.insertProducts(ctx, tx, now)
	if err != nil {
		return summary, err
	}
	summary.Products = len(productIDs)

	for i := 0; i < s.opts.Orders; i++ {
		lines, err := s.insertOrder(ctx, tx, now, locales, productIDs)
		if err != nil {
			return summary, err
		}
		summary.Orders++
		summary.Lines += lines

		if summary.Orders%500 == 0 {
			slog.Info("[Seeder] Progress", "orders", summary.Orders, "of", s.opts.Orders)
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, sales.StoreError("commit seed transaction", err)
	}

	slog.Info("[Seeder] Seeding completed",
		"products", summary.Products,
		"orders", summary.Orders,
		"lines", summary.Lines,
		"locales", len(summary.Locales),
	)
	return summary, nil
}

func (s *Seeder) locales(ctx context.Context) ([]string, error) {
	if len(s.opts.Locales) > 0 {
		out := make([]string, len(s.opts.Locales))
		copy(out, s.opts.Locales)
		return out, nil
	}

	query, args, err := sq.Select("locale").
		From(s.opts.ReferenceTable).
		OrderBy("locale").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build locale query: %w", err)
	}

	rows, err := s.reference.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sales.StoreError("list seed locales", err)
	}
	defer rows.Close()

	var locales []string
	for rows.Next() {
		var locale string
		if err := rows.Scan(&locale); err != nil {
			return nil, sales.StoreError("scan seed locale", err)
		}
		locales = append(locales, locale)
	}
	if err := rows.Err(); err != nil {
		return nil, sales.StoreError("list seed locales", err)
	}
	return locales, nil
}

func (s *Seeder) insertProducts(ctx context.Context, tx *sql.Tx, now time.Time) ([]int64, error) {
	if s.opts.Products <= 0 {
		return nil, fmt.Errorf("seed needs at least one product")
	}

	builder := sq.Insert("product_data").
		Columns("part_no", "description", "created_at", "updated_at").
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar)
	for i := 0; i < s.opts.Products; i++ {
		partNo := "PART-" + s.token(8)
		builder = builder.Values(partNo, fmt.Sprintf("Global Component %d", i), now, now)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product insert: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sales.StoreError("insert products", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, s.opts.Products)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, sales.StoreError("scan product id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, sales.StoreError("insert products", err)
	}
	return ids, nil
}

func (s *Seeder) insertOrder(ctx context.Context, tx *sql.Tx, now time.Time, locales []string, productIDs []int64) (int, error) {
	orderNumber := "ORD-" + s.token(10)
	locale := locales[s.rng.Intn(len(locales))]
	orderDate := now.AddDate(0, 0, -(1 + s.rng.Intn(365)))

	query, args, err := sq.Insert("orders").
		Columns("order_number", "locale", "order_date", "created_at", "updated_at").
		Values(orderNumber, locale, orderDate, now, now).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build order insert: %w", err)
	}

	var orderID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&orderID); err != nil {
		return 0, sales.StoreError("insert order", err)
	}

	// Distinct products per order, like picking array keys without replacement.
	lineCount := 1 + s.rng.Intn(s.opts.MaxLinesPerOrder)
	if lineCount > len(productIDs) {
		lineCount = len(productIDs)
	}
	picks := s.rng.Perm(len(productIDs))[:lineCount]

	lines := sq.Insert("order_lines").
		Columns("order_id", "product_id", "qty", "created_at", "updated_at").
		PlaceholderFormat(sq.Dollar)
	for _, idx := range picks {
		lines = lines.Values(orderID, productIDs[idx], 1+s.rng.Intn(s.opts.MaxQty), now, now)
	}

	query, args, err = lines.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build order line insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, sales.StoreError("insert order lines", err)
	}
	return lineCount, nil
}

// token returns n upper-case hex characters of a fresh random identifier.
func (s *Seeder) token(n int) string {
	return strings.ToUpper(strings.ReplaceAll(s.newID().String(), "-", ""))[:n]
}
