package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
)

// upsertBatch keeps each INSERT well under SQLite's bound-variable limit.
const upsertBatch = 500

// recordRepo implements RecordRepo using ent's SQL builder.
type recordRepo struct {
	drv *entsql.Driver
}

func (r *recordRepo) All(ctx context.Context) ([]RecordRow, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(colWordType, colRussian, colEnglish, colLevel, colLastEncounter, colHistory).
		From(entsql.Table(tableRecords)).
		OrderBy(colWordType, colRussian, colEnglish).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var (
			row  RecordRow
			last sql.NullInt64
		)
		if err := rows.Scan(&row.WordType, &row.Russian, &row.English, &row.Level, &last, &row.History); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if last.Valid {
			t := time.Unix(0, last.Int64).UTC()
			row.LastEncounter = &t
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (r *recordRepo) Upsert(ctx context.Context, rows []RecordRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	now := time.Now().UnixNano()
	for _, batch := range lo.Chunk(rows, upsertBatch) {
		b := entsql.Dialect(dialect.SQLite).
			Insert(tableRecords).
			Columns(colWordType, colRussian, colEnglish, colLevel, colLastEncounter, colHistory, colUpdatedAt)
		for _, row := range batch {
			var last any
			if row.LastEncounter != nil {
				last = row.LastEncounter.UnixNano()
			}
			b.Values(row.WordType, row.Russian, row.English, row.Level, last, row.History, now)
		}
		b.OnConflict(
			entsql.ConflictColumns(colWordType, colRussian, colEnglish),
			entsql.ResolveWithNewValues(),
		)

		query, args := b.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert records: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

func (r *recordRepo) DeleteAll(ctx context.Context) error {
	query, args := entsql.Dialect(dialect.SQLite).Delete(tableRecords).Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}
