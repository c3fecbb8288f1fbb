package results

import "errors"

var errDiskFull = errors.New("no space left on device")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errDiskFull
}
