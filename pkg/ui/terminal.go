package ui

import (
	"fmt"
	"io"
)

// Banner printed at startup
const Banner = `
    ┌──────────────────────────────────────────────┐
    │  picuki-dl  ·  profile media bulk downloader │
    └──────────────────────────────────────────────┘
`

// Color functions for terminal output
var (
	Cyan   = colorize("\033[36m%s\033[0m")
	Yellow = colorize("\033[33m%s\033[0m")
	Red    = colorize("\033[31m%s\033[0m")
	Green  = colorize("\033[32m%s\033[0m")
)

var colorEnabled = true

// SetColor turns ANSI coloring on or off for all helpers.
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintBanner prints the banner with color
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(w io.Writer, msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(w, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(w, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(w io.Writer, label string, value string) {
	fmt.Fprintf(w, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(w io.Writer, msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(w, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(w, Yellow(msg))
	}
}
