// Package ledger keeps the run's output table. Every recorded outcome
// rewrites the whole file atomically, so the file on disk is always a
// complete, parseable table of everything produced so far.
package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/use-agent/pmnprobe/input"
	"github.com/use-agent/pmnprobe/models"
)

// Layout selects the shape of the output table.
type Layout string

const (
	// LayoutOutcomes writes one row per outcome under Header.
	LayoutOutcomes Layout = "outcomes"

	// LayoutAnnotate writes the input table back with a has_pathway column.
	LayoutAnnotate Layout = "annotate"
)

// Header is the fixed header of the outcomes layout.
var Header = []string{"query", "has_pathway", "hit_url", "note"}

// ResultColumn is the column the annotate layout fills in.
const ResultColumn = "has_pathway"

// Ledger accumulates outcomes in production order and persists them after
// each one. It is not safe for concurrent use.
type Ledger struct {
	path     string
	layout   Layout
	outcomes []models.QueryOutcome

	// annotate layout only
	table   *input.Table
	nameCol int
	results map[string]models.Result
}

// New returns an outcomes-layout ledger writing to path.
func New(path string) (*Ledger, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, models.NewProbeError(models.ErrCodeLedgerWrite, "cannot resolve output path", err)
	}
	return &Ledger{path: abs, layout: LayoutOutcomes}, nil
}

// NewAnnotated returns a ledger that rewrites table, the input the queries
// came from, with a has_pathway column. nameCol is the query column.
func NewAnnotated(path string, table *input.Table, nameCol int) (*Ledger, error) {
	l, err := New(path)
	if err != nil {
		return nil, err
	}
	l.layout = LayoutAnnotate
	l.table = table
	l.nameCol = nameCol
	l.results = make(map[string]models.Result)
	return l, nil
}

// Path returns the absolute output path.
func (l *Ledger) Path() string { return l.path }

// Outcomes returns a copy of the outcomes recorded so far.
func (l *Ledger) Outcomes() []models.QueryOutcome {
	return append([]models.QueryOutcome(nil), l.outcomes...)
}

// Flush writes the current state without recording anything. Called once at
// run start so the output exists with its header before the first query.
func (l *Ledger) Flush() error {
	return l.persist()
}

// Record appends o and rewrites the output file. When Record returns nil the
// file holds exactly one row per recorded outcome, in order.
func (l *Ledger) Record(o models.QueryOutcome) error {
	l.outcomes = append(l.outcomes, o)
	if l.results != nil {
		l.results[o.Query] = o.Result
	}
	return l.persist()
}

func (l *Ledger) persist() error {
	var records [][]string
	switch l.layout {
	case LayoutAnnotate:
		records = l.annotatedRecords()
	default:
		records = l.outcomeRecords()
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return models.NewProbeError(models.ErrCodeLedgerWrite, "encode output table", err)
	}
	if err := writeFileAtomicDurable(l.path, buf.Bytes(), 0o644); err != nil {
		return models.NewProbeError(models.ErrCodeLedgerWrite,
			fmt.Sprintf("write %s", l.path), err)
	}
	return nil
}

func (l *Ledger) outcomeRecords() [][]string {
	records := make([][]string, 0, len(l.outcomes)+1)
	records = append(records, Header)
	for _, o := range l.outcomes {
		records = append(records, []string{o.Query, string(o.Result), o.Location, o.Note})
	}
	return records
}

func (l *Ledger) annotatedRecords() [][]string {
	header := append([]string(nil), l.table.Header...)
	resCol := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), ResultColumn) {
			resCol = i
			break
		}
	}
	if resCol < 0 {
		// Ragged rows can run past the header; the new column goes after
		// the widest one.
		width := len(header)
		for _, row := range l.table.Rows {
			width = max(width, len(row))
		}
		for len(header) < width {
			header = append(header, "")
		}
		header = append(header, ResultColumn)
		resCol = len(header) - 1
	}

	records := make([][]string, 0, len(l.table.Rows)+1)
	records = append(records, header)
	for i, row := range l.table.Rows {
		out := make([]string, max(len(header), len(row)))
		copy(out, row)
		name := strings.TrimSpace(l.table.Value(i, l.nameCol))
		if res, ok := l.results[name]; ok {
			out[resCol] = string(res)
		}
		records = append(records, out)
	}
	return records
}
