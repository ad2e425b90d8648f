package behave

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/subseries/internal/series"
)

// SpecSubmission is a single submission in the behaviour file
type SpecSubmission struct {
	ID     int64  `toml:"id"`
	UserID int64  `toml:"user_id"`
	StepID int64  `toml:"step_id"`
	Time   string `toml:"time"`
	Code   string `toml:"code"`
	// CodeLen generates a code of that many 'x' characters when Code is empty.
	CodeLen int    `toml:"code_len"`
	Lang    string `toml:"lang"`
}

// SpecAttempt is an expected survivor of the series filter
type SpecAttempt struct {
	ID          int64 `toml:"id"`
	Attempt     int   `toml:"attempt"`
	LastAttempt int   `toml:"last_attempt"`
}

// SpecExpect describes what the filter should produce
type SpecExpect struct {
	Kept []SpecAttempt `toml:"kept"`
	// Same and Different list ids expected to be dropped for that reason.
	Same      []int64 `toml:"same"`
	Different []int64 `toml:"different"`
	Error     bool    `toml:"error"`
}

type specScenario struct {
	Description string           `toml:"description"`
	DiffRatio   float64          `toml:"diff_ratio"`
	Submissions []SpecSubmission `toml:"submissions"`
	Expect      SpecExpect       `toml:"expect"`
}

type specRoot struct {
	DiffRatio float64        `toml:"diff_ratio"`
	Scenarios []specScenario `toml:"scenarios"`
}

// Case is a runnable scenario converted from TOML
type Case struct {
	Name      string
	DiffRatio float64
	Group     []series.Submission
	Expect    SpecExpect
}

// Parse reads a behaviour TOML file and converts it to runnable cases
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behaviour file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	// file-wide ratio applies unless a scenario sets its own
	defaultRatio := root.DiffRatio
	if defaultRatio == 0 {
		defaultRatio = series.DefaultDiffRatio
	}

	cases := make([]Case, 0, len(root.Scenarios))
	for _, sc := range root.Scenarios {
		if len(sc.Submissions) == 0 {
			return nil, fmt.Errorf("scenario %q has no submissions", sc.Description)
		}

		ratio := sc.DiffRatio
		if ratio == 0 {
			ratio = defaultRatio
		}

		group := make([]series.Submission, 0, len(sc.Submissions))
		for _, s := range sc.Submissions {
			code := s.Code
			if code == "" && s.CodeLen > 0 {
				code = strings.Repeat("x", s.CodeLen)
			}
			if code == "" {
				return nil, fmt.Errorf("scenario %q: submission %d has neither code nor code_len", sc.Description, s.ID)
			}
			group = append(group, series.Submission{
				ID:     s.ID,
				UserID: s.UserID,
				StepID: s.StepID,
				Code:   code,
				Time:   s.Time,
				Lang:   s.Lang,
			})
		}

		cases = append(cases, Case{
			Name:      sc.Description,
			DiffRatio: ratio,
			Group:     group,
			Expect:    sc.Expect,
		})
	}

	return cases, nil
}
