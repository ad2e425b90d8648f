package series

import (
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
)

// Submission is one code snippet turned in by a user for a task step.
type Submission struct {
	ID     int64
	UserID int64
	StepID int64
	Code   string
	// Time is kept as the original ISO-8601 text and parsed only when a group is scanned.
	Time string
	Lang string

	Group       int
	Attempt     int
	LastAttempt int

	// Extra holds input columns the series build does not interpret, by column name.
	Extra map[string]string
}

// Status is the verdict of the series scan for a single submission.
type Status string

const (
	StatusOK        Status = "ok"
	StatusSame      Status = "same"
	StatusDifferent Status = "different"
)

// missingCode holds the cell values pandas reads as a missing value by default.
// Dumps written from a data frame use them for absent code.
var missingCode = mapset.NewThreadUnsafeSet(
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
)

// WellFormed reports whether the submission carries usable code text.
func WellFormed(s Submission) bool {
	return !missingCode.Contains(s.Code) && utf8.ValidString(s.Code)
}
