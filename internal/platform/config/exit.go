package config

import (
	"fmt"
	"io"
	"os"
)

// Overridden in tests.
var (
	exitFunc           = os.Exit
	stderr   io.Writer = os.Stderr
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	ExitCodef(1, format, args...)
}

// ExitCodef writes a formatted error message to stderr and exits with code.
// A zero code is promoted to 1 so a reported failure never looks successful.
func ExitCodef(code int, format string, args ...any) {
	if code == 0 {
		code = 1
	}
	fmt.Fprintf(stderr, format+"\n", args...)
	exitFunc(code)
}
