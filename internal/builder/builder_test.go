package builder_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/programme-lv/subseries/api"
	"github.com/programme-lv/subseries/internal/builder"
	"github.com/programme-lv/subseries/internal/dataset"
	"github.com/programme-lv/subseries/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
	drops  []api.Drop
	chunks []api.ChunkStats
	runErr error
}

func (r *recorder) StartRun(info api.RunInfo) { r.events = append(r.events, "run_start") }
func (r *recorder) StartChunk(lo, hi int) {
	r.events = append(r.events, fmt.Sprintf("chunk_start %d %d", lo, hi))
}
func (r *recorder) DropSubmission(drop api.Drop) { r.drops = append(r.drops, drop) }
func (r *recorder) FinishChunk(stats api.ChunkStats) {
	r.events = append(r.events, "chunk_finish")
	r.chunks = append(r.chunks, stats)
}
func (r *recorder) FinishRun(errIfAny error) {
	r.events = append(r.events, "run_finish")
	r.runErr = errIfAny
}

type memSource []series.Submission

func (m memSource) ReadAll(ctx context.Context) ([]series.Submission, error) {
	return m, nil
}

type memSink struct {
	chunks [][]series.Submission
	closed bool
	failAt int
}

func (m *memSink) WriteChunk(rows []series.Submission) error {
	if m.failAt > 0 && len(m.chunks)+1 == m.failAt {
		return errors.New("disk full")
	}
	m.chunks = append(m.chunks, rows)
	return nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

func (m *memSink) rows() []series.Submission {
	var all []series.Submission
	for _, c := range m.chunks {
		all = append(all, c...)
	}
	return all
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// three users on one step, one user on another
func fixture() memSource {
	return memSource{
		{ID: 1, UserID: 1, StepID: 10, Code: "print(1)", Time: "2021-01-01T10:00:00"},
		{ID: 2, UserID: 2, StepID: 10, Code: "print(2)", Time: "2021-01-01T10:00:00"},
		{ID: 3, UserID: 1, StepID: 10, Code: "print(1) ", Time: "2021-01-01T10:01:00"},
		{ID: 4, UserID: 3, StepID: 10, Code: "", Time: "2021-01-01T10:00:00"},
		{ID: 5, UserID: 1, StepID: 10, Code: "print(1)\nprint(2)", Time: "2021-01-01T09:59:00"},
		{ID: 6, UserID: 2, StepID: 11, Code: "x", Time: "2021-01-02T10:00:00"},
		{ID: 7, UserID: 2, StepID: 11, Code: strings.Repeat("x", 31), Time: "2021-01-02T10:05:00"},
		{ID: 8, UserID: 2, StepID: 10, Code: "print(3)", Time: "2021-01-01T10:03:00"},
		{ID: 9, UserID: 4, StepID: 10, Code: "a", Time: "2021-01-01T12:00:00"},
	}
}

func TestBuild(t *testing.T) {
	rec := &recorder{}
	sink := &memSink{}
	b := builder.New(builder.Options{DiffRatio: 30, ChunkSize: 2, Workers: 1}, rec, quiet())

	stats, err := b.Build(context.Background(), fixture(), sink)
	require.NoError(t, err)
	assert.True(t, sink.closed)

	assert.Equal(t, builder.Stats{
		Rows: 9, Malformed: 1, Groups: 4, Chunks: 2, Kept: 6, Same: 1, Different: 1,
	}, stats)

	// groups: 0 = (1,10), 1 = (2,10), 2 = (2,11), 3 = (4,10)
	var got []string
	for _, s := range sink.rows() {
		got = append(got, fmt.Sprintf("%d:g%d:%d/%d", s.ID, s.Group, s.Attempt, s.LastAttempt))
	}
	assert.Equal(t, []string{
		"5:g0:1/2", "1:g0:2/2",
		"2:g1:1/2", "8:g1:2/2",
		"6:g2:1/1",
		"9:g3:1/1",
	}, got)

	assert.Equal(t, []string{
		"run_start",
		"chunk_start 0 1", "chunk_finish",
		"chunk_start 2 3", "chunk_finish",
		"run_finish",
	}, rec.events)
	require.Len(t, rec.drops, 2)
	assert.Equal(t, int64(3), rec.drops[0].SubmissionID)
	assert.Equal(t, "same", rec.drops[0].Reason)
	assert.Equal(t, 3, rec.drops[0].Position)
	assert.Equal(t, int64(7), rec.drops[1].SubmissionID)
	assert.Equal(t, "different", rec.drops[1].Reason)
	assert.Equal(t, api.ChunkStats{Lo: 0, Hi: 1, Groups: 2, Rows: 5, Kept: 4, Same: 1}, rec.chunks[0])
	assert.NoError(t, rec.runErr)
}

func TestBuildOutputIndependentOfChunksAndWorkers(t *testing.T) {
	ref := &memSink{}
	_, err := builder.New(builder.Options{ChunkSize: 1000}, nil, quiet()).Build(context.Background(), fixture(), ref)
	require.NoError(t, err)

	for _, opts := range []builder.Options{
		{ChunkSize: 1, Workers: 1},
		{ChunkSize: 3, Workers: 2},
		{ChunkSize: 1000, Workers: 8},
	} {
		sink := &memSink{}
		_, err := builder.New(opts, nil, quiet()).Build(context.Background(), fixture(), sink)
		require.NoError(t, err)
		assert.Equal(t, ref.rows(), sink.rows(), "%+v", opts)
	}
}

func TestBuildFailsOnBadTime(t *testing.T) {
	src := fixture()
	src[7].Time = "not a time"

	rec := &recorder{}
	sink := &memSink{}
	_, err := builder.New(builder.Options{ChunkSize: 2, Workers: 4}, rec, quiet()).Build(context.Background(), src, sink)
	require.ErrorIs(t, err, series.ErrBadTime)
	assert.Empty(t, sink.chunks)
	assert.False(t, sink.closed)
	assert.ErrorIs(t, rec.runErr, series.ErrBadTime)
}

func TestBuildStopsAtFailingWrite(t *testing.T) {
	sink := &memSink{failAt: 2}
	stats, err := builder.New(builder.Options{ChunkSize: 2}, nil, quiet()).Build(context.Background(), fixture(), sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, sink.chunks, 1)
	assert.Equal(t, 1, stats.Chunks)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := builder.New(builder.Options{}, nil, quiet()).Build(ctx, fixture(), &memSink{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "submissions.csv")
	require.NoError(t, os.WriteFile(in, []byte(`id,user_id,step_id,code,lang,time
1,7,100,"a = 1",python3,2021-03-01 10:00:00
2,7,100,"a = 1",python3,2021-03-01 10:01:00
3,7,100,"a = 2",python3,2021-03-01 10:02:00
4,8,100,,python3,2021-03-01 10:02:00
`), 0644))
	out := filepath.Join(dir, "series.csv.zst")

	b := builder.New(builder.Options{ChunkSize: 1}, nil, quiet())
	_, err := b.Build(context.Background(), dataset.FileSource{Path: in}, dataset.NewSink(out, dataset.SeriesColumns))
	require.NoError(t, err)

	rows, err := dataset.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(3), rows[1].ID)
	assert.Equal(t, 2, rows[1].Attempt)
	assert.Equal(t, 2, rows[1].LastAttempt)
}

func TestBuildEmptyInputWritesHeader(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "submissions.csv")
	require.NoError(t, os.WriteFile(in, []byte("id,user_id,step_id,code,time\n"), 0644))
	out := filepath.Join(dir, "series.csv")

	stats, err := builder.New(builder.Options{}, nil, quiet()).
		Build(context.Background(), dataset.FileSource{Path: in}, dataset.NewSink(out, dataset.SeriesColumns))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Chunks)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(dataset.SeriesColumns, ",")+"\n", string(body))
}
