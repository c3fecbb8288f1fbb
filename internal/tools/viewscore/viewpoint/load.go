package viewpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
)

// Field is the document field holding the viewpoint list.
const Field = "viewpoints"

// WholeFile marks a Diagnostic that is not tied to one entry.
const WholeFile = -1

// Diagnostic describes one loader failure.
type Diagnostic struct {
	Path  string
	Index int
	Err   error
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Index == WholeFile {
		return fmt.Sprintf("%s: %v", d.Path, d.Err)
	}
	return fmt.Sprintf("%s: %s[%d]: %v", d.Path, Field, d.Index, d.Err)
}

// Unwrap returns the underlying failure.
func (d Diagnostic) Unwrap() error {
	return d.Err
}

// Result carries the viewpoints parsed before any failure together with the
// diagnostics for that failure. Callers decide whether to proceed.
type Result struct {
	Viewpoints  Sequence
	Diagnostics []Diagnostic
}

// OK reports whether the document loaded without diagnostics.
func (r Result) OK() bool {
	return len(r.Diagnostics) == 0
}

// Err joins all diagnostics, or returns nil when there are none.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Diagnostics))
	for _, diagnostic := range r.Diagnostics {
		errs = append(errs, diagnostic)
	}
	return errors.Join(errs...)
}

// LoadFile reads the viewpoints document at path.
func LoadFile(path string) Result {
	f, err := os.Open(path)
	if err != nil {
		return failed(path, WholeFile, apperrors.Wrap(apperrors.CodeViewpointsUnreadable, "open viewpoints file", err))
	}
	defer f.Close()
	return Load(f, path)
}

// Load parses a viewpoints document from r. name identifies the source in
// diagnostics.
//
// A missing or null "viewpoints" field yields an empty sequence; any other
// non-array value, an object included, is a whole-file diagnostic. Parsing stops
// at the first entry that is not exactly three numbers; entries before it are
// kept.
func Load(r io.Reader, name string) Result {
	var doc struct {
		Viewpoints []json.RawMessage `json:"viewpoints"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return failed(name, WholeFile, apperrors.Wrap(apperrors.CodeViewpointsMalformed, "parse viewpoints document", err))
	}

	result := Result{Viewpoints: make(Sequence, 0, len(doc.Viewpoints))}
	for index, raw := range doc.Viewpoints {
		vp, err := parseEntry(raw)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Path:  name,
				Index: index,
				Err: apperrors.WrapWithMetadata(
					apperrors.CodeViewpointsMalformed,
					"convert entry",
					map[string]string{"index": strconv.Itoa(index)},
					err,
				),
			})
			return result
		}
		result.Viewpoints = append(result.Viewpoints, vp)
	}
	return result
}

func parseEntry(raw json.RawMessage) (Viewpoint, error) {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return Viewpoint{}, fmt.Errorf("expected array of 3 numbers: %w", err)
	}
	if len(values) != 3 {
		return Viewpoint{}, fmt.Errorf("expected 3 components, got %d", len(values))
	}
	var coords [3]float32
	for i, value := range values {
		number, ok := value.(float64)
		if !ok {
			return Viewpoint{}, fmt.Errorf("component %d is %s, not a number", i, jsonKind(value))
		}
		coords[i] = float32(number)
	}
	return Viewpoint{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func jsonKind(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func failed(path string, index int, err error) Result {
	return Result{
		Viewpoints:  Sequence{},
		Diagnostics: []Diagnostic{{Path: path, Index: index, Err: err}},
	}
}
