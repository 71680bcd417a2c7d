// Package ui prints human-facing CLI output. Logs go through pkg/logger;
// this package is only for what the user asked to see.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	errOut  io.Writer = os.Stderr
	noColor bool
	quiet   bool
)

// SetOutput redirects regular and error output
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out, errOut = stdout, stderr
}

// SetNoColor disables ANSI colors
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disabled
}

// SetQuietMode suppresses everything but errors
func SetQuietMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if noColor {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func writeLine(w io.Writer, s string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(w, s)
}

func stdout() (io.Writer, bool) {
	mu.Lock()
	defer mu.Unlock()
	return out, quiet
}

// PrintError prints an error message in red to the error output
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 && fmt.Sprintf("%v", args[0]) != "" {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(errOut, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if w, q := stdout(); !q {
		writeLine(w, Green(msg))
	}
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	if w, q := stdout(); !q {
		writeLine(w, fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
	}
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 && fmt.Sprintf("%v", args[0]) != "" {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	if w, q := stdout(); !q {
		writeLine(w, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if w, q := stdout(); !q {
		writeLine(w, Magenta(msg))
	}
}
