package termrep

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/subseries/api"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgHiGreen)
	yellow = color.New(color.FgHiYellow)
	red    = color.New(color.FgHiRed, color.Bold)
)

// TerminalReporter prints human readable progress.
type TerminalReporter struct {
	out       io.Writer
	verbose   bool
	startedAt time.Time

	kept      int
	same      int
	different int
}

// New creates a reporter writing to out. With verbose set every dropped
// submission is printed too.
func New(out io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{out: out, verbose: verbose, startedAt: time.Now()}
}

func (t *TerminalReporter) StartRun(info api.RunInfo) {
	t.startedAt = time.Now()
	bold.Fprintln(t.out, "== Series build started ==")
	fmt.Fprintf(t.out, "input=%s output=%s\n", info.Input, info.Output)
	fmt.Fprintf(t.out, "diff_ratio=%g chunk_size=%d workers=%d\n", info.DiffRatio, info.ChunkSize, info.Workers)
}

func (t *TerminalReporter) StartChunk(lo, hi int) {
	fmt.Fprintf(t.out, "-- Groups [%d, %d] --\n", lo, hi)
}

func (t *TerminalReporter) DropSubmission(drop api.Drop) {
	if !t.verbose {
		return
	}
	yellow.Fprintf(t.out, "  drop %d (user=%d step=%d attempt=%d): %s\n",
		drop.SubmissionID, drop.UserID, drop.StepID, drop.Position, drop.Reason)
}

func (t *TerminalReporter) FinishChunk(stats api.ChunkStats) {
	t.kept += stats.Kept
	t.same += stats.Same
	t.different += stats.Different
	fmt.Fprintf(t.out, "<- groups=%d rows=%d kept=%d same=%d different=%d\n",
		stats.Groups, stats.Rows, stats.Kept, stats.Same, stats.Different)
}

func (t *TerminalReporter) FinishRun(errIfAny error) {
	dur := time.Since(t.startedAt).Round(time.Millisecond)
	if errIfAny != nil {
		red.Fprintf(t.out, "== Series build failed after %s: %v ==\n", dur, errIfAny)
		return
	}
	green.Fprintf(t.out, "== Series build finished in %s: kept=%d same=%d different=%d ==\n",
		dur, t.kept, t.same, t.different)
}
