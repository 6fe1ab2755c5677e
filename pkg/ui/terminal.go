package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Banner printed at the start of interactive commands
const Banner = `
  wikiglossary :: wiki crawl and glossary extraction
`

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
	mu    sync.RWMutex
	out   io.Writer = os.Stderr
	quiet bool
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// SetOutput redirects terminal messages. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	out = w
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// IsQuietMode reports whether quiet mode is enabled
func IsQuietMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return quiet
}

func printf(always bool, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if quiet && !always {
		return
	}
	fmt.Fprintf(out, format, args...)
}

// PrintBanner prints the banner
func PrintBanner() {
	printf(false, "%s\n", Cyan(Banner))
}

// PrintError prints an error message in red. Errors print even in quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf(true, "%s\n", Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		printf(true, "%s\n", Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf(false, "%s\n", Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	printf(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf(false, "%s\n", Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		printf(false, "%s\n", Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf(false, "%s\n", Magenta(msg))
}
