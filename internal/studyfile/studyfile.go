// Package studyfile reads and writes the portable study-data file: one
// positional row per card plus metrics snapshots keyed by date.
package studyfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/cardstudy/internal/cards"
	"github.com/abhisek/cardstudy/internal/metrics"
	"github.com/abhisek/cardstudy/internal/study"
)

// Version is the file format version written by this package.
const Version = 1

// ErrUnsupportedVersion is returned by Read for files written by a newer format.
var ErrUnsupportedVersion = errors.New("studyfile: unsupported version")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://studyfile.json"

// Document is the whole study-data file.
type Document struct {
	Version int                        `json:"version"`
	Records []Row                      `json:"records"`
	Metrics map[string]metrics.Metrics `json:"metrics,omitempty"`
}

// Row is one card's record, serialized as
// [word_type, russian, english, level, timestamp|null, history].
type Row struct {
	WordType      string
	Russian       string
	English       string
	Level         int
	LastEncounter *time.Time
	History       string
}

func (r Row) MarshalJSON() ([]byte, error) {
	var ts any
	if r.LastEncounter != nil {
		ts = r.LastEncounter.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal([]any{r.WordType, r.Russian, r.English, r.Level, ts, r.History})
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 6 {
		return fmt.Errorf("record has %d fields, want 6", len(raw))
	}

	var ts *string
	targets := []any{&r.WordType, &r.Russian, &r.English, &r.Level, &ts, &r.History}
	for i, target := range targets {
		if err := json.Unmarshal(raw[i], target); err != nil {
			return fmt.Errorf("record field %d: %w", i, err)
		}
	}

	r.LastEncounter = nil
	if ts != nil {
		t, err := time.Parse(time.RFC3339Nano, *ts)
		if err != nil {
			return fmt.Errorf("record timestamp: %w", err)
		}
		r.LastEncounter = &t
	}
	return nil
}

// Key returns the card identity the row is stored under.
func (r Row) Key() cards.Key {
	return cards.NewKey(cards.WordType(r.WordType), r.Russian, r.English)
}

// EncodeRecord converts a record into its file row.
func EncodeRecord(k cards.Key, rec study.Record) Row {
	row := Row{
		WordType: string(k.Type),
		Russian:  k.Russian,
		English:  k.English,
		Level:    rec.ProficiencyLevel,
		History:  study.EncodeHistory(rec.History),
	}
	if rec.LastEncounter != nil {
		t := *rec.LastEncounter
		row.LastEncounter = &t
	}
	return row
}

// DecodeRecord converts a file row back into an identity and record.
func DecodeRecord(row Row) (cards.Key, study.Record, error) {
	history, err := study.ParseHistory(row.History)
	if err != nil {
		return cards.Key{}, study.Record{}, err
	}
	rec := study.Record{
		ProficiencyLevel: row.Level,
		History:          history,
	}
	if row.LastEncounter != nil {
		t := *row.LastEncounter
		rec.LastEncounter = &t
	}
	return row.Key(), rec, nil
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal(schemaJSON, &def); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Read parses and validates a study-data file.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read study file: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile study file schema: %w", err)
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode study file: %w", err)
	}
	if doc.Version > Version {
		return nil, fmt.Errorf("%w: %d (newest supported is %d)", ErrUnsupportedVersion, doc.Version, Version)
	}
	return &doc, nil
}

// Write encodes doc as indented JSON. A zero version is written as Version.
func Write(w io.Writer, doc *Document) error {
	if doc.Version == 0 {
		doc.Version = Version
	}
	if doc.Records == nil {
		doc.Records = []Row{}
	}
	for date, m := range doc.Metrics {
		if m.ByType == nil {
			m.ByType = map[cards.WordType]metrics.Summary{}
			doc.Metrics[date] = m
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write study file: %w", err)
	}
	return nil
}
