package models

import "fmt"

// Result is the pathway verdict for one query.
type Result string

const (
	ResultYes Result = "YES"
	ResultNo  Result = "NO"
)

// ResultOf maps the extractor's boolean to a Result.
func ResultOf(has bool) Result {
	if has {
		return ResultYes
	}
	return ResultNo
}

// Outcome notes. Every note other than NoteOK carries ResultNo.
const (
	NoteOK           = "ok"
	NoteNoPathway    = "no-pathway-link-under-h1"
	NotePrefixHome   = "home-fail"
	NotePrefixInput  = "input-fail"
	NotePrefixSubmit = "submit-fail"
)

// FailNote formats a "<prefix>:<detail>" diagnostic note.
func FailNote(prefix string, detail any) string {
	return fmt.Sprintf("%s:%v", prefix, detail)
}

// QueryTarget is one distinct, trimmed, non-empty entity name.
type QueryTarget struct {
	// Name is the query string submitted to the search form.
	Name string

	// Row is the 0-based data row of the name's first appearance in the
	// input table.
	Row int
}

// QueryOutcome is the recorded result of one QueryTarget.
type QueryOutcome struct {
	Query    string
	Result   Result
	Location string // last observed URL
	Note     string
}

// Summary aggregates the outcomes of a run.
type Summary struct {
	Total  int
	Yes    int
	No     int
	Failed int // NO outcomes whose note is a failure tag rather than a clean miss
}

// Add folds one outcome into the summary.
func (s *Summary) Add(o QueryOutcome) {
	s.Total++
	if o.Result == ResultYes {
		s.Yes++
		return
	}
	s.No++
	if o.Note != NoteNoPathway {
		s.Failed++
	}
}
