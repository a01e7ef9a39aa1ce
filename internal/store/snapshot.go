package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/cardstudy/internal/metrics"
)

// metricsRepo implements MetricsRepo. Snapshots are stored as JSON text.
type metricsRepo struct {
	drv *entsql.Driver
}

func (r *metricsRepo) Save(ctx context.Context, m metrics.Metrics) error {
	if m.Date == "" {
		return fmt.Errorf("save metrics snapshot: missing date")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics snapshot: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableMetrics).
		Columns(colDate, colData, colCreatedAt).
		Values(m.Date, string(data), time.Now().UnixNano()).
		OnConflict(
			entsql.ConflictColumns(colDate),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save metrics snapshot: %w", err)
	}
	return nil
}

func (r *metricsRepo) Get(ctx context.Context, date string) (*metrics.Metrics, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(colData).
		From(entsql.Table(tableMetrics)).
		Where(entsql.EQ(colDate, date)).
		Query()

	list, err := r.scan(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *metricsRepo) List(ctx context.Context, limit int) ([]metrics.Metrics, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(colData).
		From(entsql.Table(tableMetrics)).
		OrderBy(entsql.Desc(colDate))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	return r.scan(ctx, query, args)
}

func (r *metricsRepo) scan(ctx context.Context, query string, args []any) ([]metrics.Metrics, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query metrics snapshots: %w", err)
	}
	defer rows.Close()

	var out []metrics.Metrics
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan metrics snapshot: %w", err)
		}
		var m metrics.Metrics
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("unmarshal metrics snapshot: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics snapshots: %w", err)
	}
	return out, nil
}
