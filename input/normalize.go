package input

import (
	"strings"

	"github.com/use-agent/pmnprobe/models"
)

// Normalize turns the named column of t into the run's query targets.
func Normalize(t *Table, column string) ([]models.QueryTarget, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(t.Rows))
	for i := range t.Rows {
		names[i] = t.Value(i, col)
	}
	return NormalizeNames(names), nil
}

// NormalizeNames trims names, drops blank ones and removes duplicates. The
// first occurrence wins and keeps its position; Row is its index in names.
func NormalizeNames(names []string) []models.QueryTarget {
	seen := make(map[string]struct{}, len(names))
	out := make([]models.QueryTarget, 0, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, models.QueryTarget{Name: name, Row: i})
	}
	return out
}

// Window selects a positional slice of the deduplicated targets, for
// splitting a long list across several runs by hand.
type Window struct {
	Offset int
	Limit  int // 0 means no limit
}

// Apply returns the targets inside the window.
func (w Window) Apply(targets []models.QueryTarget) []models.QueryTarget {
	if w.Offset >= len(targets) {
		return nil
	}
	start := max(w.Offset, 0)
	end := len(targets)
	if w.Limit > 0 && start+w.Limit < end {
		end = start + w.Limit
	}
	return targets[start:end]
}
