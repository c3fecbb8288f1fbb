// Package viewpoint loads candidate camera positions for batch evaluation.
//
// A viewpoints document is a JSON object whose "viewpoints" field lists
// [x, y, z] arrays:
//
//	{"viewpoints": [[1, 0, 0], [0, 1, 0]]}
//
// Order of appearance is preserved; the index of a viewpoint in the returned
// sequence is the index used when scores are correlated and written out.
package viewpoint

import "strconv"

// Viewpoint is a camera position. It carries no orientation.
type Viewpoint struct {
	X, Y, Z float32
}

// Sequence is an ordered, index-addressable list of viewpoints.
type Sequence []Viewpoint

// Array returns the position as a 3-element array.
func (v Viewpoint) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// String renders the position as "(x, y, z)".
func (v Viewpoint) String() string {
	return "(" + formatCoord(v.X) + ", " + formatCoord(v.Y) + ", " + formatCoord(v.Z) + ")"
}

func formatCoord(value float32) string {
	return strconv.FormatFloat(float64(value), 'g', -1, 32)
}
