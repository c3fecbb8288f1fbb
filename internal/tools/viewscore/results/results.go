// Package results writes evaluated viewpoints and their scores as CSV.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
)

var (
	// Header names the written columns.
	Header = []string{"index", "camX", "camY", "camZ", "viewpointEntropy"}
	// LegacyHeader is the stray second header line older tooling expects.
	LegacyHeader = []string{"index", "red", "green", "blue", "alpha"}
)

// Options tunes the written file.
type Options struct {
	// LegacyHeader adds the second "index,red,green,blue,alpha" header line.
	LegacyHeader bool
}

// Row is one written record.
type Row struct {
	Index     int
	Viewpoint viewpoint.Viewpoint
	Score     float64
}

// Rows pairs viewpoints with their index-aligned scores.
func Rows(seq viewpoint.Sequence, scores []float64) ([]Row, error) {
	if len(seq) != len(scores) {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("viewpoints and scores differ in length: %d != %d", len(seq), len(scores)))
	}
	rows := make([]Row, len(seq))
	for i, vp := range seq {
		rows[i] = Row{Index: i, Viewpoint: vp, Score: scores[i]}
	}
	return rows, nil
}

// Record renders the row as CSV fields. Coordinates use the shortest float32
// representation, scores the shortest float64 representation.
func (r Row) Record() []string {
	return []string{
		strconv.Itoa(r.Index),
		strconv.FormatFloat(float64(r.Viewpoint.X), 'g', -1, 32),
		strconv.FormatFloat(float64(r.Viewpoint.Y), 'g', -1, 32),
		strconv.FormatFloat(float64(r.Viewpoint.Z), 'g', -1, 32),
		strconv.FormatFloat(r.Score, 'g', -1, 64),
	}
}

// Write writes the header and one row per viewpoint to w.
func Write(w io.Writer, seq viewpoint.Sequence, scores []float64, opts Options) error {
	rows, err := Rows(seq, scores)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return writeFailed("write header", err)
	}
	if opts.LegacyHeader {
		if err := cw.Write(LegacyHeader); err != nil {
			return writeFailed("write header", err)
		}
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return writeFailed(fmt.Sprintf("write row %d", row.Index), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return writeFailed("flush rows", err)
	}
	return nil
}

// WriteFile writes the results to path, replacing any existing file, and
// returns once the data is synced to storage.
func WriteFile(path string, seq viewpoint.Sequence, scores []float64, opts Options) (err error) {
	if _, err := Rows(seq, scores); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return writeFailed("create "+path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = writeFailed("close "+path, closeErr)
		}
	}()

	if err := Write(f, seq, scores, opts); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return writeFailed("sync "+path, err)
	}
	return nil
}

// Best returns the index of the highest score, skipping failed indices and
// NaN scores. ok is false when no candidate remains. Ties keep the lowest
// index.
func Best(scores []float64, failed []int) (index int, ok bool) {
	skip := make(map[int]struct{}, len(failed))
	for _, i := range failed {
		skip[i] = struct{}{}
	}
	index = -1
	for i, score := range scores {
		if _, skipped := skip[i]; skipped || math.IsNaN(score) {
			continue
		}
		if index == -1 || score > scores[index] {
			index = i
		}
	}
	return index, index >= 0
}

func writeFailed(message string, err error) error {
	return apperrors.Wrap(apperrors.CodeResultsWriteFailed, message, err)
}
