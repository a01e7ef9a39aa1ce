package studyfile

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/store"
	"github.com/abhisek/cardstudy/internal/studydb"
)

// Export builds a document from every record in db plus the given metrics
// snapshots.
func Export(db *studydb.DB, snapshots []metrics.Metrics) *Document {
	doc := &Document{
		Version: Version,
		Records: lo.Map(db.Records(), func(kr studydb.KeyedRecord, _ int) Row {
			return EncodeRecord(kr.Key, kr.Record)
		}),
	}
	if len(snapshots) > 0 {
		doc.Metrics = lo.SliceToMap(snapshots, func(m metrics.Metrics) (string, metrics.Metrics) {
			return m.Date, m
		})
	}
	return doc
}

// ImportReport summarizes an Import call.
type ImportReport struct {
	Imported int
	Dropped  []cards.Key
	Metrics  int
}

// Import writes every row of doc that resolves against pool into db,
// overwriting existing records for the same card. Unresolved, malformed or
// inconsistent rows are skipped with a warning. Metrics snapshots are saved
// through snapshots when it is not nil.
func Import(ctx context.Context, doc *Document, db *studydb.DB, pool *cards.Pool, snapshots store.MetricsRepo, log logrus.FieldLogger) (ImportReport, error) {
	var report ImportReport
	for _, row := range doc.Records {
		k, rec, err := DecodeRecord(row)
		if err == nil {
			// Levels above the configured maximum are clamped below, not rejected.
			err = rec.Validate(max(rec.ProficiencyLevel, db.ProficiencyLevels()))
		}
		if err != nil {
			log.WithField("card", row.Key().String()).WithError(err).Warn("skipping malformed study record")
			report.Dropped = append(report.Dropped, row.Key())
			continue
		}
		card, ok := pool.Lookup(k)
		if !ok {
			log.WithField("card", k.String()).Warn("skipping study record for unknown card")
			report.Dropped = append(report.Dropped, k)
			continue
		}
		if rec.ProficiencyLevel > db.ProficiencyLevels() {
			log.WithFields(logrus.Fields{
				"card":  k.String(),
				"level": rec.ProficiencyLevel,
			}).Warn("clamping proficiency level")
		}
		db.Put(card, rec)
		report.Imported++
	}

	if snapshots == nil {
		return report, nil
	}
	for date, m := range doc.Metrics {
		m.Date = date
		if err := snapshots.Save(ctx, m); err != nil {
			return report, fmt.Errorf("import metrics snapshot %s: %w", date, err)
		}
		report.Metrics++
	}
	return report, nil
}
