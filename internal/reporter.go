package internal

import "github.com/programme-lv/subseries/api"

// Reporter receives progress of a series build. Implementations must not
// fail the run; delivery problems are theirs to log.
type Reporter interface {
	StartRun(info api.RunInfo)

	StartChunk(lo, hi int)
	DropSubmission(drop api.Drop)
	FinishChunk(stats api.ChunkStats)

	FinishRun(errIfAny error)
}

// Tee forwards every event to all reporters in order.
func Tee(reporters ...Reporter) Reporter {
	return tee(reporters)
}

type tee []Reporter

func (t tee) StartRun(info api.RunInfo) {
	for _, r := range t {
		r.StartRun(info)
	}
}

func (t tee) StartChunk(lo, hi int) {
	for _, r := range t {
		r.StartChunk(lo, hi)
	}
}

func (t tee) DropSubmission(drop api.Drop) {
	for _, r := range t {
		r.DropSubmission(drop)
	}
}

func (t tee) FinishChunk(stats api.ChunkStats) {
	for _, r := range t {
		r.FinishChunk(stats)
	}
}

func (t tee) FinishRun(errIfAny error) {
	for _, r := range t {
		r.FinishRun(errIfAny)
	}
}

// Nop discards all events.
type Nop struct{}

func (Nop) StartRun(api.RunInfo)       {}
func (Nop) StartChunk(int, int)        {}
func (Nop) DropSubmission(api.Drop)    {}
func (Nop) FinishChunk(api.ChunkStats) {}
func (Nop) FinishRun(error)            {}
