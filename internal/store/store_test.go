package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/metrics"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{tableRecords, tableMetrics, tableReviews, "global_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordRepo().Upsert(ctx, []RecordRow{{WordType: "noun", Russian: "кот", English: "cat", Level: 1, History: "0"}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.RecordRepo().All(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordUpsertAndAll(t *testing.T) {
	s := openTestStore(t)
	repo := s.RecordRepo()
	ctx := context.Background()

	rows, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	ts := time.Date(2025, 2, 3, 4, 5, 6, 789, time.UTC)
	err = repo.Upsert(ctx, []RecordRow{
		{WordType: "verb", Russian: "читать", English: "to read", Level: 3, LastEncounter: &ts, History: "101"},
		{WordType: "noun", Russian: "кот", English: "cat"},
	})
	require.NoError(t, err)

	rows, err = repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Ordered by identity.
	assert.Equal(t, "noun", rows[0].WordType)
	assert.Nil(t, rows[0].LastEncounter)

	got := rows[1]
	assert.Equal(t, "читать", got.Russian)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, "101", got.History)
	require.NotNil(t, got.LastEncounter)
	assert.True(t, ts.Equal(*got.LastEncounter), "timestamp %v, want %v", *got.LastEncounter, ts)

	// Same identity replaces.
	err = repo.Upsert(ctx, []RecordRow{{WordType: "verb", Russian: "читать", English: "to read", Level: 4, LastEncounter: &ts, History: "1101"}})
	require.NoError(t, err)
	rows, err = repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 4, rows[1].Level)
	assert.Equal(t, "1101", rows[1].History)
}

func TestRecordUpsertLargeBatch(t *testing.T) {
	s := openTestStore(t)
	repo := s.RecordRepo()
	ctx := context.Background()

	rows := make([]RecordRow, upsertBatch*2+7)
	for i := range rows {
		rows[i] = RecordRow{WordType: "noun", Russian: "слово", English: fmt.Sprintf("word%d", i), Level: 1, History: "1"}
	}
	require.NoError(t, repo.Upsert(ctx, rows))

	got, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, got, len(rows))
}

func TestRecordDeleteAll(t *testing.T) {
	s := openTestStore(t)
	repo := s.RecordRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []RecordRow{{WordType: "noun", Russian: "дом", English: "house", Level: 2, History: "1"}}))
	require.NoError(t, repo.DeleteAll(ctx))

	rows, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMetricsSaveGetList(t *testing.T) {
	s := openTestStore(t)
	repo := s.MetricsRepo()
	ctx := context.Background()

	m, err := repo.Get(ctx, "2025/01/01")
	require.NoError(t, err)
	assert.Nil(t, m, "expected nil snapshot when none exist")

	for i, date := range []string{"2025/01/01", "2025/01/02", "2025/01/03"} {
		err := repo.Save(ctx, metrics.Metrics{
			Date:    date,
			Levels:  4,
			Overall: metrics.Summary{Counts: []int{i, 0, 0, 0, 0}, Total: i},
			ByType: map[cards.WordType]metrics.Summary{
				cards.TypeNoun: {Counts: []int{i, 0, 0, 0, 0}, Total: i},
			},
		})
		require.NoError(t, err)
	}

	// Overwrite the same day.
	require.NoError(t, repo.Save(ctx, metrics.Metrics{Date: "2025/01/02", Levels: 4, Overall: metrics.Summary{Total: 42}}))

	m, err = repo.Get(ctx, "2025/01/02")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 42, m.Overall.Total)

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2025/01/03", list[0].Date)
	assert.Equal(t, "2025/01/02", list[1].Date)
	assert.Equal(t, 2, list[0].ByType[cards.TypeNoun].Total)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMetricsSaveRequiresDate(t *testing.T) {
	s := openTestStore(t)
	err := s.MetricsRepo().Save(context.Background(), metrics.Metrics{})
	assert.Error(t, err)
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sc, err := newSequenceCounter(s.DB())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), seq)
	}
}

func TestReviewEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	add := func(session string, offset time.Duration, knewIt bool) {
		t.Helper()
		err := repo.AppendReview(ctx, ReviewEventData{
			SessionID:   session,
			WordType:    "noun",
			Russian:     "кот",
			English:     "cat",
			KnewIt:      knewIt,
			LevelBefore: 1,
			LevelAfter:  2,
			Score:       0.5,
			Rep:         1,
			Timestamp:   base.Add(offset),
		})
		require.NoError(t, err)
	}
	add("a", 0, true)
	add("a", time.Minute, false)
	add("a", 2*time.Minute, true)
	add("b", time.Hour, true)

	events, err := repo.QueryReviews(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Sequence)
	}
	assert.True(t, events[0].KnewIt)
	assert.False(t, events[1].KnewIt)
	assert.True(t, base.Add(time.Minute).Equal(events[1].Timestamp))

	onlyA, err := repo.QueryReviews(ctx, QueryOpts{SessionID: "a", After: 1})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	window, err := repo.QueryReviews(ctx, QueryOpts{From: base.Add(time.Minute), To: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	limited, err := repo.QueryReviews(ctx, QueryOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	sums, err := repo.SessionSummaries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "b", sums[0].SessionID)
	assert.Equal(t, "a", sums[1].SessionID)
	assert.Equal(t, 3, sums[1].Reviews)
	assert.Equal(t, 2, sums[1].Known)
	assert.InDelta(t, 2.0/3.0, sums[1].Accuracy(), 1e-9)
	assert.True(t, base.Equal(sums[1].Started))
	assert.True(t, base.Add(2*time.Minute).Equal(sums[1].Ended))

	one, err := repo.SessionSummaries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}
