package studydb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/store"
	"github.com/abhisek/cardstudy/internal/study"
)

// ErrEmptyIdentity is returned when a card has no text to key its record by.
var ErrEmptyIdentity = errors.New("studydb: card has an empty identity")

// Options configures a DB. Zero values take defaults; nil repositories make
// the DB purely in-memory.
type Options struct {
	ProficiencyLevels int
	MaxHistorySize    int
	Records           store.RecordRepo
	Metrics           store.MetricsRepo
	Logger            logrus.FieldLogger
	Clock             func() time.Time
}

// ChangeEvent is delivered to subscribers after every mark.
type ChangeEvent struct {
	Card       cards.Card
	Record     study.Record
	Transition study.Transition
}

// KeyedRecord is a study record with the identity it is stored under.
type KeyedRecord struct {
	Key    cards.Key
	Record study.Record
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Loaded  int
	Dropped []cards.Key
}

// DB is the study record store. Reads may run concurrently with marks; all
// methods are safe for concurrent use.
type DB struct {
	levels     int
	maxHistory int
	records    store.RecordRepo
	metrics    store.MetricsRepo
	log        logrus.FieldLogger
	clock      func() time.Time

	mu    sync.RWMutex
	recs  map[cards.Key]*study.Record
	dirty map[cards.Key]uint64
	gen   uint64

	saveMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[int]func(ChangeEvent)
	nextID      int
}

// New creates an empty study database.
func New(opts Options) *DB {
	if opts.ProficiencyLevels <= 0 {
		opts.ProficiencyLevels = study.DefaultProficiencyLevels
	}
	if opts.MaxHistorySize <= 0 {
		opts.MaxHistorySize = study.DefaultMaxHistorySize
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &DB{
		levels:     opts.ProficiencyLevels,
		maxHistory: opts.MaxHistorySize,
		records:    opts.Records,
		metrics:    opts.Metrics,
		log:        opts.Logger,
		clock:      opts.Clock,
		recs:       make(map[cards.Key]*study.Record),
		dirty:      make(map[cards.Key]uint64),
		listeners:  make(map[int]func(ChangeEvent)),
	}
}

// ProficiencyLevels returns the configured level cap.
func (db *DB) ProficiencyLevels() int { return db.levels }

// MaxHistorySize returns the number of outcomes kept per record.
func (db *DB) MaxHistorySize() int { return db.maxHistory }

// Record returns a copy of the card's study record. A record that does not
// exist yet reads as a fresh level-0 record; it is created lazily on first mark.
func (db *DB) Record(card cards.Card) study.Record {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if r, ok := db.recs[card.Key()]; ok {
		return r.Clone()
	}
	return study.Record{}
}

// MarkCard applies a pass/fail outcome to the card's record, marks it dirty
// and notifies subscribers once the lock is released.
func (db *DB) MarkCard(card cards.Card, knewIt bool) (study.Record, error) {
	k := card.Key()
	if k.Russian == "" || k.English == "" {
		return study.Record{}, fmt.Errorf("%w: %q/%q", ErrEmptyIdentity, card.Russian, card.English)
	}

	db.mu.Lock()
	r, ok := db.recs[k]
	if !ok {
		r = &study.Record{}
		db.recs[k] = r
	}
	tr := r.Mark(knewIt, db.levels, db.maxHistory, db.clock())
	db.touch(k)
	out := r.Clone()
	db.mu.Unlock()

	db.notify(ChangeEvent{Card: card, Record: out.Clone(), Transition: tr})
	return out, nil
}

// Put replaces the card's record, as done by imports.
func (db *DB) Put(card cards.Card, rec study.Record) {
	k := card.Key()
	rec = rec.Clone()
	rec.ProficiencyLevel = min(max(rec.ProficiencyLevel, 0), db.levels)
	if len(rec.History) > db.maxHistory {
		rec.History = rec.History[:db.maxHistory]
	}

	db.mu.Lock()
	db.recs[k] = &rec
	db.touch(k)
	db.mu.Unlock()
}

// touch marks k dirty. Callers hold db.mu.
func (db *DB) touch(k cards.Key) {
	db.gen++
	db.dirty[k] = db.gen
}

// OnChange subscribes fn to change events. The returned func unsubscribes.
func (db *DB) OnChange(fn func(ChangeEvent)) func() {
	db.listenersMu.Lock()
	defer db.listenersMu.Unlock()
	id := db.nextID
	db.nextID++
	db.listeners[id] = fn
	return func() {
		db.listenersMu.Lock()
		defer db.listenersMu.Unlock()
		delete(db.listeners, id)
	}
}

func (db *DB) notify(ev ChangeEvent) {
	db.listenersMu.Lock()
	ids := lo.Keys(db.listeners)
	sort.Ints(ids)
	fns := lo.Map(ids, func(id int, _ int) func(ChangeEvent) { return db.listeners[id] })
	db.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Dirty reports whether in-memory changes have not been saved yet.
func (db *DB) Dirty() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.dirty) > 0
}

// SaveAllChanges writes every dirty record in one transaction. It is
// idempotent and a no-op when nothing changed or no repository is set.
// Records marked again while the save runs stay dirty.
func (db *DB) SaveAllChanges(ctx context.Context) error {
	if db.records == nil {
		return nil
	}
	db.saveMu.Lock()
	defer db.saveMu.Unlock()

	db.mu.RLock()
	if len(db.dirty) == 0 {
		db.mu.RUnlock()
		return nil
	}
	gens := make(map[cards.Key]uint64, len(db.dirty))
	rows := make([]store.RecordRow, 0, len(db.dirty))
	for k, g := range db.dirty {
		gens[k] = g
		rows = append(rows, toRow(k, *db.recs[k]))
	}
	db.mu.RUnlock()

	if err := db.records.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("save study records: %w", err)
	}

	db.mu.Lock()
	for k, g := range gens {
		if db.dirty[k] == g {
			delete(db.dirty, k)
		}
	}
	db.mu.Unlock()

	db.log.WithField("records", len(rows)).Debug("saved study records")
	return nil
}

// Load replaces the in-memory records with the persisted ones, resolving each
// identity against pool. Rows that no longer resolve, or that cannot be
// decoded, are skipped with a warning.
func (db *DB) Load(ctx context.Context, pool *cards.Pool) (LoadReport, error) {
	var report LoadReport
	if db.records == nil {
		return report, nil
	}
	rows, err := db.records.All(ctx)
	if err != nil {
		return report, fmt.Errorf("load study records: %w", err)
	}

	recs := make(map[cards.Key]*study.Record, len(rows))
	for _, row := range rows {
		k := cards.NewKey(cards.WordType(row.WordType), row.Russian, row.English)
		card, ok := pool.Lookup(k)
		if !ok {
			db.log.WithField("card", k.String()).Warn("dropping study record for unknown card")
			report.Dropped = append(report.Dropped, k)
			continue
		}
		rec, err := fromRow(row, db.levels, db.maxHistory)
		if err != nil {
			db.log.WithField("card", k.String()).WithError(err).Warn("dropping malformed study record")
			report.Dropped = append(report.Dropped, k)
			continue
		}
		recs[card.Key()] = &rec
		report.Loaded++
	}

	db.mu.Lock()
	db.recs = recs
	db.dirty = make(map[cards.Key]uint64)
	db.mu.Unlock()

	if len(report.Dropped) > 0 {
		db.log.WithFields(logrus.Fields{
			"loaded":  report.Loaded,
			"dropped": len(report.Dropped),
		}).Warn("some study records could not be resolved")
	}
	return report, nil
}

// Clear removes every record in memory and in the repository.
func (db *DB) Clear(ctx context.Context) error {
	db.saveMu.Lock()
	defer db.saveMu.Unlock()

	db.mu.Lock()
	db.recs = make(map[cards.Key]*study.Record)
	db.dirty = make(map[cards.Key]uint64)
	db.mu.Unlock()

	if db.records == nil {
		return nil
	}
	if err := db.records.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear study records: %w", err)
	}
	return nil
}

// Records returns every stored record ordered by identity.
func (db *DB) Records() []KeyedRecord {
	db.mu.RLock()
	out := make([]KeyedRecord, 0, len(db.recs))
	for k, r := range db.recs {
		out = append(out, KeyedRecord{Key: k, Record: r.Clone()})
	}
	db.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Entries pairs every card of pool with its record, for aggregation.
func (db *DB) Entries(pool *cards.Pool) []metrics.Entry {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return lo.Map(pool.All(), func(c cards.Card, _ int) metrics.Entry {
		var rec study.Record
		if r, ok := db.recs[c.Key()]; ok {
			rec = r.Clone()
		}
		return metrics.Entry{Card: c, Record: rec}
	})
}

// RecordMetricsSnapshot aggregates the pool and stores the result as
// today's snapshot, replacing one recorded earlier the same day.
func (db *DB) RecordMetricsSnapshot(ctx context.Context, agg *metrics.Aggregator, pool *cards.Pool) (metrics.Metrics, error) {
	m := agg.Snapshot(db.Entries(pool), db.clock())
	if db.metrics == nil {
		return m, nil
	}
	if err := db.metrics.Save(ctx, m); err != nil {
		return m, fmt.Errorf("record metrics snapshot: %w", err)
	}
	return m, nil
}

func toRow(k cards.Key, r study.Record) store.RecordRow {
	row := store.RecordRow{
		WordType: string(k.Type),
		Russian:  k.Russian,
		English:  k.English,
		Level:    r.ProficiencyLevel,
		History:  study.EncodeHistory(r.History),
	}
	if r.LastEncounter != nil {
		t := *r.LastEncounter
		row.LastEncounter = &t
	}
	return row
}

func fromRow(row store.RecordRow, levels, maxHistory int) (study.Record, error) {
	history, err := study.ParseHistory(row.History)
	if err != nil {
		return study.Record{}, err
	}
	if len(history) > maxHistory {
		history = history[:maxHistory]
	}
	rec := study.Record{
		ProficiencyLevel: row.Level,
		History:          history,
		LastEncounter:    row.LastEncounter,
	}
	if err := rec.Validate(levels); err != nil {
		return study.Record{}, err
	}
	return rec, nil
}
