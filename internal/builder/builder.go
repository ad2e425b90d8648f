package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/programme-lv/subseries/api"
	"github.com/programme-lv/subseries/internal"
	"github.com/programme-lv/subseries/internal/series"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

// Source yields the raw submissions of a run.
type Source interface {
	ReadAll(ctx context.Context) ([]series.Submission, error)
}

// Sink persists filtered chunks. The first WriteChunk call creates the
// destination, later calls append to it.
type Sink interface {
	WriteChunk(rows []series.Submission) error
	Close() error
}

type Options struct {
	DiffRatio float64
	ChunkSize int
	Workers   int
}

// Stats counts what happened to the submissions of a run.
type Stats struct {
	Rows      int
	Malformed int
	Groups    int
	Chunks    int
	Kept      int
	Same      int
	Different int
}

type Builder struct {
	opts     Options
	reporter internal.Reporter
	log      *slog.Logger
}

func New(opts Options, reporter internal.Reporter, log *slog.Logger) *Builder {
	if opts.DiffRatio == 0 {
		opts.DiffRatio = series.DefaultDiffRatio
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = series.DefaultChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if reporter == nil {
		reporter = internal.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Builder{opts: opts, reporter: reporter, log: log}
}

// Build groups the submissions of src into series, filters every series and
// writes the survivors to dst one chunk of groups at a time. The first failing
// chunk stops the run; chunks written before it stay in dst.
func (b *Builder) Build(ctx context.Context, src Source, dst Sink) (Stats, error) {
	b.reporter.StartRun(api.RunInfo{
		Input:     describe(src),
		Output:    describe(dst),
		DiffRatio: b.opts.DiffRatio,
		ChunkSize: b.opts.ChunkSize,
		Workers:   b.opts.Workers,
	})
	stats, err := b.build(ctx, src, dst)
	if err == nil {
		err = dst.Close()
	}
	b.reporter.FinishRun(err)
	return stats, err
}

func (b *Builder) build(ctx context.Context, src Source, dst Sink) (Stats, error) {
	var stats Stats

	subs, err := src.ReadAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read submissions: %w", err)
	}
	stats.Rows = len(subs)

	kept, groups := series.Assign(subs)
	stats.Malformed = len(subs) - len(kept)
	stats.Groups = groups
	b.log.Info("assigned groups", "rows", stats.Rows, "malformed", stats.Malformed, "groups", groups)
	if groups > 0 {
		b.log.Info("groups range", "min", 0, "max", groups-1)
	}

	ix, err := series.NewIndex(kept)
	if err != nil {
		return stats, err
	}

	pager := ix.Pager(b.opts.ChunkSize)
	for {
		page, ok := pager.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		b.log.Info("processing groups", "lo", page.Lo, "hi", page.Hi)
		b.reporter.StartChunk(page.Lo, page.Hi)

		rows, chunk, err := b.filterPage(ctx, page)
		if err != nil {
			return stats, fmt.Errorf("failed to filter groups [%d, %d]: %w", page.Lo, page.Hi, err)
		}
		if err := dst.WriteChunk(rows); err != nil {
			return stats, fmt.Errorf("failed to save groups [%d, %d]: %w", page.Lo, page.Hi, err)
		}

		stats.Chunks++
		stats.Kept += chunk.Kept
		stats.Same += chunk.Same
		stats.Different += chunk.Different
		b.log.Info("finished groups", "lo", page.Lo, "hi", page.Hi, "kept", chunk.Kept, "same", chunk.Same, "different", chunk.Different)
		b.reporter.FinishChunk(chunk)
	}
	return stats, nil
}

type groupResult struct {
	kept    []series.Submission
	dropped []series.Checked
}

// filterPage filters every group of the page. Results are stitched back in
// group id order, so the number of workers never changes the output or the
// order of reported drops.
func (b *Builder) filterPage(ctx context.Context, page series.Page) ([]series.Submission, api.ChunkStats, error) {
	results := make([]groupResult, len(page.Groups))
	rows := xsync.NewCounter()
	same := xsync.NewCounter()
	different := xsync.NewCounter()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, group := range page.Groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			checked, err := series.Scan(group, b.opts.DiffRatio)
			if err != nil {
				return err
			}
			rows.Add(int64(len(checked)))

			var dropped []series.Checked
			for _, c := range checked {
				switch c.Status {
				case series.StatusSame:
					same.Inc()
				case series.StatusDifferent:
					different.Inc()
				default:
					continue
				}
				dropped = append(dropped, c)
			}
			results[i] = groupResult{kept: series.Keep(checked), dropped: dropped}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, api.ChunkStats{}, err
	}

	var out []series.Submission
	for _, r := range results {
		for _, c := range r.dropped {
			b.drop(c)
		}
		out = append(out, r.kept...)
	}
	return out, api.ChunkStats{
		Lo:        page.Lo,
		Hi:        page.Hi,
		Groups:    len(page.Groups),
		Rows:      int(rows.Value()),
		Kept:      len(out),
		Same:      int(same.Value()),
		Different: int(different.Value()),
	}, nil
}

func (b *Builder) drop(c series.Checked) {
	b.log.Debug("drop submission",
		"user", c.UserID, "step", c.StepID, "attempt", c.Position, "reason", string(c.Status))
	b.reporter.DropSubmission(api.Drop{
		SubmissionID: c.ID,
		UserID:       c.UserID,
		StepID:       c.StepID,
		Group:        c.Group,
		Position:     c.Position,
		Reason:       string(c.Status),
		CodePreview:  c.Code,
	})
}

func describe(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", v)
}
