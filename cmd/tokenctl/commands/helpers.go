// Package commands contains the tokenctl command implementations.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output formats accepted by every command
const (
	FormatText = "text"
	FormatJSON = "json"
)

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format %q (valid options: text, json)", format)
	}
}

// writeJSON writes v as indented JSON for machine consumption
func writeJSON(out io.Writer, v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, err = fmt.Fprintln(out, string(jsonBytes))
	return err
}
