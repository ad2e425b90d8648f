package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/subseries/internal/series"
)

// Sink writes a dataset chunk by chunk. The first chunk truncates the file and
// writes the header, later chunks are appended without it. Compressed sinks
// append one zstd frame per chunk.
type Sink struct {
	path    string
	columns []string
	started bool
}

func NewSink(path string, columns []string) *Sink {
	return &Sink{path: path, columns: columns}
}

func (s *Sink) String() string {
	return s.path
}

func (s *Sink) WriteChunk(rows []series.Submission) error {
	var header []string
	if !s.started {
		header = s.columns
	}
	err := writeCsv(s.path, s.started, header, func(cw *csv.Writer) error {
		for _, row := range rows {
			if err := cw.Write(s.record(row)); err != nil {
				return fmt.Errorf("failed to write submission %d: %w", row.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.started = true
	return nil
}

// Close makes sure the file exists with at least a header.
func (s *Sink) Close() error {
	if s.started {
		return nil
	}
	return s.WriteChunk(nil)
}

func (s *Sink) record(row series.Submission) []string {
	rec := make([]string, len(s.columns))
	for i, col := range s.columns {
		switch col {
		case ColID:
			rec[i] = strconv.FormatInt(row.ID, 10)
		case ColUserID:
			rec[i] = strconv.FormatInt(row.UserID, 10)
		case ColStepID:
			rec[i] = strconv.FormatInt(row.StepID, 10)
		case ColCode:
			rec[i] = row.Code
		case ColLang:
			rec[i] = row.Lang
		case ColTime:
			rec[i] = row.Time
		case ColGroup:
			rec[i] = strconv.Itoa(row.Group)
		case ColAttempt:
			rec[i] = strconv.Itoa(row.Attempt)
		case ColLastAttempt:
			rec[i] = strconv.Itoa(row.LastAttempt)
		default:
			rec[i] = row.Extra[col]
		}
	}
	return rec
}

// writeCsv opens path for writing, truncating it unless appending, and writes
// the header when one is given followed by whatever write produces. Compressed
// paths get a single zstd frame per call.
func writeCsv(path string, appending bool, header []string, write func(cw *csv.Writer) error) (err error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appending {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output %s: %w", path, cerr)
		}
	}()

	var w io.Writer = f
	var enc *zstd.Encoder
	if IsCompressed(path) {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = enc
	}

	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := write(cw); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to finish zstd frame: %w", err)
		}
	}
	return nil
}
