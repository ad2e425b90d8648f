package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/subseries/internal/series"
)

const (
	ColID          = "id"
	ColUserID      = "user_id"
	ColStepID      = "step_id"
	ColCode        = "code"
	ColLang        = "lang"
	ColTime        = "time"
	ColGroup       = "group"
	ColStatus      = "status"
	ColAttempt     = "attempt"
	ColLastAttempt = "last_attempt"
)

var ErrMissingColumn = errors.New("missing required column")

var requiredColumns = []string{ColID, ColUserID, ColStepID, ColCode, ColTime}

// SeriesColumns is the layout of a built series dataset. Input columns outside
// of it follow in input order, see OutputColumns.
var SeriesColumns = []string{
	ColID, ColUserID, ColStepID, ColCode, ColLang, ColTime,
	ColGroup, ColAttempt, ColLastAttempt,
}

// interpreted columns never travel in Submission.Extra; status is recomputed
// by every build and dropped from the output.
var interpreted = mapset.NewThreadUnsafeSet(append(slices.Clone(SeriesColumns), ColStatus)...)

// IsCompressed reports whether the path names a zstd-compressed dataset.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

// open returns the decompressed contents of a dataset file.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	if !IsCompressed(path) {
		return f, nil
	}
	d, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	return zstdFile{Decoder: d, f: f}, nil
}

// ReadFile reads submissions from a CSV file, decompressing it if it ends with .zst.
func ReadFile(path string) ([]series.Submission, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Read(r)
}

// ReadHeader returns the column names of a dataset file without reading its rows.
func ReadHeader(path string) ([]string, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readHeader(csv.NewReader(r))
}

// OutputColumns is the layout a series build writes for an input with the given
// header: SeriesColumns, then the input's other columns except status.
func OutputColumns(header []string) []string {
	cols := slices.Clone(SeriesColumns)
	for _, name := range header {
		name = strings.TrimSpace(name)
		if !interpreted.Contains(name) && !slices.Contains(cols, name) {
			cols = append(cols, name)
		}
	}
	return cols
}

func readHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty dataset", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return header, nil
}

// columnPositions maps trimmed column names to their index and checks that
// every required column is present.
func columnPositions(header []string, required []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := pos[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return pos, nil
}

// Read parses a CSV stream with a header row. Rows keep their code even when it
// is empty; dropping them is up to the caller. Columns the series build does not
// interpret are kept in Submission.Extra.
func Read(r io.Reader) ([]series.Submission, error) {
	cr := csv.NewReader(r)

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	pos, err := columnPositions(header, requiredColumns)
	if err != nil {
		return nil, err
	}
	var extra []string
	for name := range pos {
		if !interpreted.Contains(name) {
			extra = append(extra, name)
		}
	}

	var subs []series.Submission
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		s := series.Submission{
			Code: rec[pos[ColCode]],
			Time: rec[pos[ColTime]],
		}
		if i, ok := pos[ColLang]; ok {
			s.Lang = rec[i]
		}

		if s.ID, err = parseInt(rec[pos[ColID]]); err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, ColID, err)
		}
		if s.UserID, err = parseInt(rec[pos[ColUserID]]); err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, ColUserID, err)
		}
		if s.StepID, err = parseInt(rec[pos[ColStepID]]); err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, ColStepID, err)
		}

		// series columns of an earlier run are carried along when present
		for col, dst := range map[string]*int{
			ColGroup:       &s.Group,
			ColAttempt:     &s.Attempt,
			ColLastAttempt: &s.LastAttempt,
		} {
			i, ok := pos[col]
			if !ok || rec[i] == "" {
				continue
			}
			v, err := parseInt(rec[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s: %w", line, col, err)
			}
			*dst = int(v)
		}

		if len(extra) > 0 {
			s.Extra = make(map[string]string, len(extra))
			for _, name := range extra {
				s.Extra[name] = rec[pos[name]]
			}
		}

		subs = append(subs, s)
	}
	return subs, nil
}

// parseInt also accepts integral floats such as "42.0", which is how
// integer columns with gaps come out of pandas.
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

// FileSource reads a whole dataset file. Name, when set, is what the source
// reports itself as, e.g. the remote location the file was fetched from.
type FileSource struct {
	Path string
	Name string
}

func (s FileSource) ReadAll(ctx context.Context) ([]series.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(s.Path)
}

func (s FileSource) String() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}
