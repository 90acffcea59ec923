package postgres

const (
	queryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = $1
			  AND table_name = $2
		)
	`

	// explainPrefix is prepended to the measured statement; the statement text
	// itself is passed through unchanged.
	explainPrefix = "EXPLAIN (FORMAT JSON) "

	// queryRelationTuples reads the planner's row estimate for a relation.
	queryRelationTuples = `SELECT reltuples FROM pg_class WHERE oid = to_regclass($1)`
)
