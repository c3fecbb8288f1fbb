package results

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
)

func TestWriteSingleRow(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, viewpoint.Sequence{{}}, []float64{0.42}, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "index,camX,camY,camZ,viewpointEntropy\n0,0,0,0,0.42\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestWriteLegacyHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, viewpoint.Sequence{{X: 1}}, []float64{2}, Options{LegacyHeader: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want 3", lines)
	}
	if lines[1] != "index,red,green,blue,alpha" {
		t.Fatalf("second header = %q", lines[1])
	}
	if lines[2] != "0,1,0,0,2" {
		t.Fatalf("data row = %q", lines[2])
	}
}

func TestWriteFormatsShortestFloats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	seq := viewpoint.Sequence{{X: 0.1, Y: -2.5, Z: 1e-7}, {X: 123456, Y: 3, Z: 0}}
	if err := Write(&buf, seq, []float64{1.0 / 3.0, -0.125}, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if got, want := lines[1], "0,0.1,-2.5,1e-07,0.3333333333333333"; got != want {
		t.Fatalf("row 0 = %q, want %q", got, want)
	}
	if got, want := lines[2], "1,123456,3,0,-0.125"; got != want {
		t.Fatalf("row 1 = %q, want %q", got, want)
	}
}

func TestWriteIndicesAreContiguous(t *testing.T) {
	t.Parallel()

	seq := make(viewpoint.Sequence, 25)
	scores := make([]float64, 25)
	for i := range seq {
		seq[i] = viewpoint.Viewpoint{X: float32(i)}
		scores[i] = float64(i) / 2
	}
	var buf bytes.Buffer
	if err := Write(&buf, seq, scores, Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")[1:]
	if len(lines) != len(seq) {
		t.Fatalf("rows = %d, want %d", len(lines), len(seq))
	}
	for i, line := range lines {
		index, _, _ := strings.Cut(line, ",")
		if index != strconv.Itoa(i) {
			t.Fatalf("row %d has index %q", i, index)
		}
	}
}

func TestWriteRejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Write(&buf, viewpoint.Sequence{{}, {}}, []float64{1}, Options{})
	if !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", buf.String())
	}
}

func TestWriteSurfacesWriterErrors(t *testing.T) {
	t.Parallel()

	err := Write(failingWriter{}, viewpoint.Sequence{{}}, []float64{1}, Options{})
	if !apperrors.HasCode(err, apperrors.CodeResultsWriteFailed) {
		t.Fatalf("expected write failure code, got %v", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected disk full cause, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "entropies.csv")
	seq := viewpoint.Sequence{{X: 1}, {Y: 1}}
	if err := WriteFile(path, seq, []float64{0.5, 0.75}, Options{}); err != nil {
		t.Fatalf("write file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "index,camX,camY,camZ,viewpointEntropy\n0,1,0,0,0.5\n1,0,1,0,0.75\n"
	if string(data) != want {
		t.Fatalf("file = %q, want %q", data, want)
	}
}

func TestWriteFileUnwritablePath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing-dir", "entropies.csv")
	err := WriteFile(path, viewpoint.Sequence{{}}, []float64{1}, Options{})
	if !apperrors.HasCode(err, apperrors.CodeResultsWriteFailed) {
		t.Fatalf("expected write failure code, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected path in error, got %q", err)
	}
}

func TestBest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scores []float64
		failed []int
		want   int
		ok     bool
	}{
		{name: "empty", scores: nil, want: -1, ok: false},
		{name: "highest", scores: []float64{0.1, 0.9, 0.4}, want: 1, ok: true},
		{name: "tie keeps first", scores: []float64{0.7, 0.7}, want: 0, ok: true},
		{name: "skips failed", scores: []float64{0, 5, 2}, failed: []int{1}, want: 2, ok: true},
		{name: "negative scores", scores: []float64{-3, -1, -2}, want: 1, ok: true},
		{name: "all failed", scores: []float64{0, 0}, failed: []int{0, 1}, want: -1, ok: false},
		{name: "skips NaN", scores: []float64{0.2, math.NaN(), 0.5}, want: 2, ok: true},
		{name: "leading NaN", scores: []float64{math.NaN(), 0.1}, want: 1, ok: true},
		{name: "only NaN", scores: []float64{math.NaN()}, want: -1, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(tt.scores, tt.failed)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("Best = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
