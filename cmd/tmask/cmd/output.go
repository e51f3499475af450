package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
	dimColor     = color.New(color.Faint)
)

// Success prints a success message in green.
func Success(w io.Writer, format string, a ...any) {
	successColor.Fprintf(w, "✓ "+format+"\n", a...)
}

// Warning prints a warning message in yellow.
func Warning(w io.Writer, format string, a ...any) {
	warningColor.Fprintf(w, "⚠ "+format+"\n", a...)
}

// Info prints an info message in cyan.
func Info(w io.Writer, format string, a ...any) {
	infoColor.Fprintf(w, "ℹ "+format+"\n", a...)
}

// Dim returns text in dim/faint style.
func Dim(format string, a ...any) string {
	return dimColor.Sprintf(format, a...)
}

// PrintKeyValue prints a key-value pair with the key highlighted.
func PrintKeyValue(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s: %s\n", boldColor.Sprint(key), value)
}

// PrintTableHeader prints a table header with bold column names.
func PrintTableHeader(w io.Writer, columns ...string) {
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, boldColor.Sprint(col))
	}
	fmt.Fprintln(w)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
