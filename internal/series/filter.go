package series

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultDiffRatio bounds how many times the code length may grow or shrink
// between two consecutive attempts.
const DefaultDiffRatio = 30.0

// Checked is a submission together with its scan verdict.
type Checked struct {
	Submission
	At     time.Time
	Status Status
	// Position is the 1-based place in the time-sorted group, before filtering.
	Position int
}

// IsSameCode reports whether two codes are equal after trimming surrounding whitespace.
func IsSameCode(prev, cur string) bool {
	return strings.TrimSpace(prev) == strings.TrimSpace(cur)
}

// IsDifferentCode reports whether the length of cur relative to prev, in characters,
// falls outside [1/diffRatio, diffRatio]. Both bounds are inclusive.
func IsDifferentCode(prev, cur string, diffRatio float64) bool {
	ratio := float64(utf8.RuneCountInString(cur)) / float64(utf8.RuneCountInString(prev))
	return !(1/diffRatio <= ratio && ratio <= diffRatio)
}

// Scan sorts a group by submission time and checks every submission against
// the one right before it. The predecessor is compared even if it was itself
// flagged, so a run of duplicates is judged pair by pair.
//
// A single unparsable time fails the whole group, and so does a group mixing
// times with and without an offset, as those have no common order.
func Scan(group []Submission, diffRatio float64) ([]Checked, error) {
	checked := make([]Checked, len(group))
	var withOffset, naive bool
	for i, s := range group {
		at, hasOffset, err := parseTime(s.Time)
		if err != nil {
			return nil, fmt.Errorf("submission %d of user %d on step %d: %w", s.ID, s.UserID, s.StepID, err)
		}
		if hasOffset {
			withOffset = true
		} else {
			naive = true
		}
		if withOffset && naive {
			return nil, fmt.Errorf("submission %d of user %d on step %d: %w: %q mixes naive and offset times in one series",
				s.ID, s.UserID, s.StepID, ErrBadTime, s.Time)
		}
		checked[i] = Checked{Submission: s, At: at, Status: StatusOK}
	}

	slices.SortStableFunc(checked, func(a, b Checked) int {
		return a.At.Compare(b.At)
	})

	for i := range checked {
		checked[i].Position = i + 1
		if i == 0 {
			continue
		}
		prev, cur := checked[i-1].Code, checked[i].Code
		switch {
		case IsSameCode(prev, cur):
			checked[i].Status = StatusSame
		case IsDifferentCode(prev, cur, diffRatio):
			checked[i].Status = StatusDifferent
		}
	}
	return checked, nil
}

// Keep returns the submissions with StatusOK in scan order and numbers them
// as attempts 1..K of a series of length K.
func Keep(checked []Checked) []Submission {
	kept := make([]Submission, 0, len(checked))
	for _, c := range checked {
		if c.Status == StatusOK {
			kept = append(kept, c.Submission)
		}
	}
	for i := range kept {
		kept[i].Attempt = i + 1
		kept[i].LastAttempt = len(kept)
	}
	return kept
}

// Filter turns one group into its attempt series.
func Filter(group []Submission, diffRatio float64) ([]Submission, error) {
	checked, err := Scan(group, diffRatio)
	if err != nil {
		return nil, err
	}
	return Keep(checked), nil
}
