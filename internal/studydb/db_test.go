package studydb

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/store"
	"github.com/abhisek/cardstudy/internal/study"
)

// memRepo is an in-memory RecordRepo.
type memRepo struct {
	mu      sync.Mutex
	rows    map[string]store.RecordRow
	upserts int
	err     error
	// failures makes the next n upserts fail.
	failures int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]store.RecordRow)}
}

func rowID(r store.RecordRow) string {
	return r.WordType + "|" + r.Russian + "|" + r.English
}

func (m *memRepo) All(context.Context) ([]store.RecordRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.RecordRow
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) Upsert(_ context.Context, rows []store.RecordRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.failures > 0 {
		m.failures--
		return errors.New("database is locked")
	}
	m.upserts++
	for _, r := range rows {
		m.rows[rowID(r)] = r
	}
	return nil
}

func (m *memRepo) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]store.RecordRow)
	return nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

var (
	cat   = cards.Card{Type: cards.TypeNoun, Russian: "кот", English: "cat"}
	house = cards.Card{Type: cards.TypeNoun, Russian: "дом", English: "house"}
	read  = cards.Card{Type: cards.TypeVerb, Russian: "читать", English: "to read"}
)

func testPool(t *testing.T) *cards.Pool {
	t.Helper()
	p, err := cards.NewPool(cat, house, read)
	require.NoError(t, err)
	return p
}

func fixedClock() func() time.Time {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestRecord_LazyDefault(t *testing.T) {
	db := New(Options{})
	rec := db.Record(cat)
	assert.True(t, rec.IsNew())
	assert.Empty(t, rec.History)
	assert.Nil(t, rec.LastEncounter)
	assert.False(t, db.Dirty(), "reading must not dirty the database")
}

func TestMarkCard_AppliesRulesAndNotifies(t *testing.T) {
	db := New(Options{Clock: fixedClock()})

	var events []ChangeEvent
	unsub := db.OnChange(func(ev ChangeEvent) { events = append(events, ev) })

	rec, err := db.MarkCard(cat, true)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ProficiencyLevel)
	assert.Equal(t, []bool{true}, rec.History)
	require.NotNil(t, rec.LastEncounter)
	assert.True(t, fixedClock()().Equal(*rec.LastEncounter))
	assert.True(t, db.Dirty())

	rec, err = db.MarkCard(cat, false)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ProficiencyLevel)
	assert.Equal(t, []bool{false, true}, rec.History)

	require.Len(t, events, 2)
	assert.True(t, events[0].Transition.Introduced())
	assert.True(t, events[1].Transition.LevelledDown())
	assert.Equal(t, cat.Key(), events[1].Card.Key())

	unsub()
	_, err = db.MarkCard(cat, true)
	require.NoError(t, err)
	assert.Len(t, events, 2, "unsubscribed listener must not fire")
}

func TestMarkCard_ListenerMayReadDB(t *testing.T) {
	db := New(Options{})
	var seen study.Record
	db.OnChange(func(ev ChangeEvent) { seen = db.Record(ev.Card) })

	_, err := db.MarkCard(house, false)
	require.NoError(t, err)
	assert.Equal(t, 1, seen.ProficiencyLevel)
}

func TestMarkCard_EmptyIdentity(t *testing.T) {
	db := New(Options{})
	_, err := db.MarkCard(cards.Card{Type: cards.TypeNoun}, true)
	assert.True(t, errors.Is(err, ErrEmptyIdentity))
}

func TestMarkCard_HistoryCapped(t *testing.T) {
	db := New(Options{MaxHistorySize: 3})
	for i := 0; i < 5; i++ {
		_, err := db.MarkCard(cat, i%2 == 0)
		require.NoError(t, err)
	}
	assert.Len(t, db.Record(cat).History, 3)
}

func TestSaveAllChanges(t *testing.T) {
	repo := newMemRepo()
	db := New(Options{Records: repo})
	ctx := context.Background()

	require.NoError(t, db.SaveAllChanges(ctx))
	assert.Equal(t, 0, repo.upserts, "clean database must not write")

	_, _ = db.MarkCard(cat, true)
	_, _ = db.MarkCard(read, false)
	require.NoError(t, db.SaveAllChanges(ctx))
	assert.False(t, db.Dirty())
	assert.Equal(t, 2, repo.count())
	assert.Equal(t, 1, repo.upserts)

	// Idempotent.
	require.NoError(t, db.SaveAllChanges(ctx))
	assert.Equal(t, 1, repo.upserts)

	row := repo.rows[rowID(store.RecordRow{WordType: "verb", Russian: "читать", English: "to read"})]
	assert.Equal(t, 1, row.Level)
	assert.Equal(t, "0", row.History)
}

func TestSaveAllChanges_ErrorKeepsDirty(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("disk full")
	db := New(Options{Records: repo})

	_, _ = db.MarkCard(cat, true)
	err := db.SaveAllChanges(context.Background())
	require.Error(t, err)
	assert.True(t, db.Dirty())
}

func TestLoad_DropsUnknownCards(t *testing.T) {
	repo := newMemRepo()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.Upsert(context.Background(), []store.RecordRow{
		{WordType: "noun", Russian: "Кот", English: "cat", Level: 3, LastEncounter: &ts, History: "101"},
		{WordType: "noun", Russian: "собака", English: "dog", Level: 2, LastEncounter: &ts, History: "1"},
		{WordType: "verb", Russian: "читать", English: "to read", Level: 1, LastEncounter: &ts, History: "x1"},
	}))

	logger, hook := test.NewNullLogger()
	db := New(Options{Records: repo, Logger: logger})
	report, err := db.Load(context.Background(), testPool(t))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Loaded)
	assert.Len(t, report.Dropped, 2)

	rec := db.Record(cat)
	assert.Equal(t, 3, rec.ProficiencyLevel)
	assert.Equal(t, []bool{true, false, true}, rec.History)
	require.NotNil(t, rec.LastEncounter)
	assert.True(t, ts.Equal(*rec.LastEncounter))
	assert.False(t, db.Dirty())

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.GreaterOrEqual(t, warnings, 2)
}

func TestLoad_DropsInconsistentRecords(t *testing.T) {
	repo := newMemRepo()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.Upsert(context.Background(), []store.RecordRow{
		{WordType: "noun", Russian: "кот", English: "cat", Level: 0, LastEncounter: &ts, History: "0101"},
		{WordType: "noun", Russian: "дом", English: "house", Level: 2, History: "11"},
		{WordType: "verb", Russian: "читать", English: "to read", Level: 1, LastEncounter: &ts, History: "0"},
	}))

	logger, hook := test.NewNullLogger()
	db := New(Options{Records: repo, Logger: logger})
	report, err := db.Load(context.Background(), testPool(t))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Loaded)
	assert.ElementsMatch(t, []cards.Key{cat.Key(), house.Key()}, report.Dropped)

	assert.True(t, db.Record(cat).IsNew())
	assert.Nil(t, db.Record(cat).LastEncounter)
	assert.Empty(t, db.Record(cat).History)
	assert.Equal(t, 0, db.Record(house).ProficiencyLevel)
	assert.Equal(t, 1, db.Record(read).ProficiencyLevel)

	for _, e := range hook.AllEntries() {
		if e.Message == "dropping malformed study record" {
			assert.ErrorIs(t, e.Data[logrus.ErrorKey].(error), study.ErrInconsistentRecord)
		}
	}
}

func TestClear(t *testing.T) {
	repo := newMemRepo()
	db := New(Options{Records: repo})
	ctx := context.Background()

	_, _ = db.MarkCard(cat, true)
	require.NoError(t, db.SaveAllChanges(ctx))
	require.NoError(t, db.Clear(ctx))

	assert.True(t, db.Record(cat).IsNew())
	assert.False(t, db.Dirty())
	assert.Equal(t, 0, repo.count())
	assert.Empty(t, db.Records())
}

func TestPut(t *testing.T) {
	db := New(Options{MaxHistorySize: 2})
	db.Put(cat, study.Record{ProficiencyLevel: 9, History: []bool{true, true, false}})
	rec := db.Record(cat)
	assert.Equal(t, 4, rec.ProficiencyLevel)
	assert.Equal(t, []bool{true, true}, rec.History)
	assert.True(t, db.Dirty())
}

func TestEntriesAndSnapshot(t *testing.T) {
	metricsRepo := &memMetrics{}
	db := New(Options{Metrics: metricsRepo, Clock: fixedClock()})
	pool := testPool(t)

	_, _ = db.MarkCard(cat, true)  // level 2
	_, _ = db.MarkCard(read, true) // level 2
	_, _ = db.MarkCard(read, true) // level 3

	entries := db.Entries(pool)
	require.Len(t, entries, 3)

	agg, err := metrics.NewAggregator(4, nil)
	require.NoError(t, err)
	m, err := db.RecordMetricsSnapshot(context.Background(), agg, pool)
	require.NoError(t, err)

	assert.Equal(t, "2025/06/01", m.Date)
	assert.Equal(t, []int{1, 0, 1, 1, 0}, m.Overall.Counts)
	assert.InDelta(t, (0.25+0.5)/3, m.Overall.Proficiency, 1e-9)
	require.Len(t, metricsRepo.saved, 1)
	assert.Equal(t, "2025/06/01", metricsRepo.saved[0].Date)
}

type memMetrics struct {
	saved []metrics.Metrics
}

func (m *memMetrics) Save(_ context.Context, s metrics.Metrics) error {
	m.saved = append(m.saved, s)
	return nil
}

func (m *memMetrics) Get(_ context.Context, date string) (*metrics.Metrics, error) {
	for i := range m.saved {
		if m.saved[i].Date == date {
			return &m.saved[i], nil
		}
	}
	return nil, nil
}

func (m *memMetrics) List(context.Context, int) ([]metrics.Metrics, error) {
	return m.saved, nil
}

func TestRoundTripThroughSQLite(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	pool := testPool(t)

	db := New(Options{Records: st.RecordRepo(), Clock: fixedClock()})
	_, _ = db.MarkCard(cat, true)
	_, _ = db.MarkCard(cat, false)
	_, _ = db.MarkCard(house, true)
	require.NoError(t, db.SaveAllChanges(ctx))

	reloaded := New(Options{Records: st.RecordRepo()})
	report, err := reloaded.Load(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Loaded)
	want, got := db.Records(), reloaded.Records()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Key, got[i].Key)
		assert.Equal(t, want[i].Record.ProficiencyLevel, got[i].Record.ProficiencyLevel)
		assert.Equal(t, want[i].Record.History, got[i].Record.History)
		require.NotNil(t, got[i].Record.LastEncounter)
		assert.True(t, want[i].Record.LastEncounter.Equal(*got[i].Record.LastEncounter))
	}
}
