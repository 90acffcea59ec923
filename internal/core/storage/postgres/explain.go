package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/optimization-lab/regional-report/internal/instrument"
)

// explainNode is the subset of a PostgreSQL JSON plan node we report on.
type explainNode struct {
	NodeType            string        `json:"Node Type"`
	RelationName        string        `json:"Relation Name"`
	Schema              string        `json:"Schema"`
	IndexName           string        `json:"Index Name"`
	PlanRows            *float64      `json:"Plan Rows"`
	ActualRows          *float64      `json:"Actual Rows"`
	RowsRemovedByFilter *float64      `json:"Rows Removed by Filter"`
	Filter              string        `json:"Filter"`
	IndexCond           string        `json:"Index Cond"`
	HashCond            string        `json:"Hash Cond"`
	MergeCond           string        `json:"Merge Cond"`
	GroupKey            []string      `json:"Group Key"`
	Plans               []explainNode `json:"Plans"`
}

type explainDocument struct {
	Plan explainNode `json:"Plan"`
}

// Explain returns the planner's estimate for query as one row per plan node,
// walked depth-first from the root. Plain EXPLAIN carries no actual row counts,
// so the selectivity of a restricted scan is estimated from its planned rows
// against the relation's reltuples.
func (a *Adapter) Explain(ctx context.Context, query string, args ...interface{}) ([]instrument.RawPlanRow, error) {
	var raw []byte
	if err := a.db.QueryRowContext(ctx, explainPrefix+query, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("explain on %s: %w", a.name, err)
	}
	nodes, err := decodeExplain(raw)
	if err != nil {
		return nil, err
	}

	tuples := make(map[string]float64)
	rows := make([]instrument.RawPlanRow, 0, len(nodes))
	for _, node := range nodes {
		row := planRow(node)
		if row.Filtered == nil && node.restricts() {
			if total, ok := a.relationTuples(ctx, node.qualifiedRelation(), tuples); ok {
				row.Filtered = estimateFiltered(*node.PlanRows, total)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// relationTuples looks up reltuples once per relation. Relations never analysed
// report -1 and count as unknown.
func (a *Adapter) relationTuples(ctx context.Context, relation string, seen map[string]float64) (float64, bool) {
	total, ok := seen[relation]
	if !ok {
		if err := a.db.QueryRowContext(ctx, queryRelationTuples, relation).Scan(&total); err != nil {
			slog.Debug("[Postgres] Row estimate unavailable", "store", a.name, "relation", relation, "error", err)
			total = -1
		}
		seen[relation] = total
	}
	return total, total > 0
}

func estimateFiltered(planRows, total float64) *float64 {
	filtered := math.Min(planRows/total*100, 100)
	return &filtered
}

// restricts reports whether node is a relation scan narrowed by a condition.
func (n *explainNode) restricts() bool {
	return n.RelationName != "" && n.PlanRows != nil && (n.Filter != "" || n.IndexCond != "")
}

func (n *explainNode) qualifiedRelation() string {
	if n.Schema != "" {
		return n.Schema + "." + n.RelationName
	}
	return n.RelationName
}

func decodeExplain(raw []byte) ([]*explainNode, error) {
	var docs []explainDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode explain output: %w", err)
	}

	var nodes []*explainNode
	for i := range docs {
		nodes = flattenPlan(&docs[i].Plan, nodes)
	}
	return nodes, nil
}

func parseExplainJSON(raw []byte) ([]instrument.RawPlanRow, error) {
	nodes, err := decodeExplain(raw)
	if err != nil {
		return nil, err
	}
	rows := make([]instrument.RawPlanRow, 0, len(nodes))
	for _, node := range nodes {
		rows = append(rows, planRow(node))
	}
	return rows, nil
}

func flattenPlan(node *explainNode, acc []*explainNode) []*explainNode {
	acc = append(acc, node)
	for i := range node.Plans {
		acc = flattenPlan(&node.Plans[i], acc)
	}
	return acc
}

func planRow(node *explainNode) instrument.RawPlanRow {
	row := instrument.RawPlanRow{Rows: node.PlanRows}

	if node.NodeType != "" {
		nodeType := node.NodeType
		row.Type = &nodeType
	}

	switch {
	case node.IndexName != "":
		ref := node.IndexName
		row.Ref = &ref
	case node.RelationName != "":
		ref := node.RelationName
		if node.Schema != "" {
			ref = node.Schema + "." + ref
		}
		row.Ref = &ref
	}

	// Exact selectivity needs actual row counts (EXPLAIN ANALYZE output).
	if node.ActualRows != nil && node.RowsRemovedByFilter != nil {
		total := *node.ActualRows + *node.RowsRemovedByFilter
		if total > 0 {
			filtered := *node.ActualRows / total * 100
			row.Filtered = &filtered
		}
	}

	var extra []string
	if node.IndexCond != "" {
		extra = append(extra, "Index Cond: "+node.IndexCond)
	}
	if node.HashCond != "" {
		extra = append(extra, "Hash Cond: "+node.HashCond)
	}
	if node.MergeCond != "" {
		extra = append(extra, "Merge Cond: "+node.MergeCond)
	}
	if node.Filter != "" {
		extra = append(extra, "Filter: "+node.Filter)
	}
	if len(node.GroupKey) > 0 {
		extra = append(extra, "Group Key: "+strings.Join(node.GroupKey, ", "))
	}
	if len(extra) > 0 {
		joined := strings.Join(extra, "; ")
		row.Extra = &joined
	}

	return row
}
