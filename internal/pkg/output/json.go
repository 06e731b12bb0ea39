// Package output provides utilities for consistent CLI output formatting.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// MarshalJSON marshals v to JSON with formatting based on TTY detection.
// When stdout is a TTY, output is pretty-printed with 2-space indentation.
// When piped or redirected, output is compact single-line JSON.
func MarshalJSON(v any) ([]byte, error) {
	return MarshalJSONPretty(v, IsTTY())
}

// MarshalJSONPretty marshals v to JSON with explicit formatting control.
func MarshalJSONPretty(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// WriteJSON writes v to w as one JSON document followed by a newline,
// pretty-printed when stdout is a terminal.
func WriteJSON(w io.Writer, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
