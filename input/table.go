// Package input reads the metabolite table and turns one of its columns into
// the ordered, deduplicated list of queries for a run.
package input

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/use-agent/pmnprobe/models"
)

// Table is a decoded delimited file with a header row.
type Table struct {
	Header []string
	Rows   [][]string

	// Encoding is the candidate encoding that decoded the file.
	Encoding string
}

// ReadTable reads the CSV file at path, trying each candidate encoding in
// order until one decodes the whole file.
func ReadTable(path string, encodings []string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, models.NewProbeError(models.ErrCodeInputNotFound, "no input file given", nil)
	}
	data, err := os.ReadFile(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewProbeError(models.ErrCodeInputNotFound,
				fmt.Sprintf("input file %s not found", path), err)
		}
		return nil, models.NewProbeError(models.ErrCodeInputNotFound,
			fmt.Sprintf("input file %s not readable", path), err)
	}

	tried := make([]string, 0, len(encodings))
	for _, name := range encodings {
		tried = append(tried, name)
		decode, ok := decoders[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			slog.Warn("unknown input encoding skipped", "encoding", name)
			continue
		}
		text, ok := decode(data)
		if !ok {
			slog.Debug("input does not decode", "encoding", name)
			continue
		}

		t, err := ParseTable(strings.NewReader(text))
		if err != nil {
			return nil, err
		}
		t.Encoding = name
		slog.Debug("input table decoded", "path", path, "encoding", name, "rows", len(t.Rows))
		return t, nil
	}

	return nil, models.NewProbeError(models.ErrCodeDecode,
		fmt.Sprintf("cannot decode %s with any of %v; save it as UTF-8 and retry", path, tried), nil)
}

// ParseTable parses CSV text whose first record is the header.
// Ragged rows are accepted.
func ParseTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, models.NewProbeError(models.ErrCodeSchema, "input has no header row", nil)
	}
	if err != nil {
		return nil, models.NewProbeError(models.ErrCodeSchema, "malformed input header", err)
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, models.NewProbeError(models.ErrCodeSchema, "malformed input row", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Column returns the index of the header named name. An exact match wins;
// otherwise the first case-insensitive match is used.
func (t *Table) Column(name string) (int, error) {
	want := cleanHeader(name)
	for i, h := range t.Header {
		if cleanHeader(h) == want {
			return i, nil
		}
	}
	for i, h := range t.Header {
		if strings.EqualFold(cleanHeader(h), want) {
			return i, nil
		}
	}
	return -1, models.NewProbeError(models.ErrCodeSchema,
		fmt.Sprintf("column %q not found; available columns: %v", name, t.Header), nil)
}

// Value returns the cell at row, col or "" for a short row.
func (t *Table) Value(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

func cleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}
