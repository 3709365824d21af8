// Package output renders command results as human-readable text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Printer emits one result per command invocation, as a text line or as a
// pretty-printed JSON document depending on the selected mode.
type Printer struct {
	w    io.Writer
	json bool
}

// New builds a Printer writing to w. When jsonMode is set, Emit prints the
// structured value instead of the text line.
func New(w io.Writer, jsonMode bool) *Printer {
	return &Printer{w: w, json: jsonMode}
}

// JSON reports whether the printer is in JSON mode.
func (p *Printer) JSON() bool { return p.json }

// Emit writes the result: textLine in text mode, value as indented JSON
// otherwise.
func (p *Printer) Emit(textLine string, value any) error {
	if !p.json {
		_, err := fmt.Fprintln(p.w, textLine)
		return err
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, string(payload))
	return err
}

// EmitLines writes multi-line text results, or the structured value in JSON
// mode.
func (p *Printer) EmitLines(lines []string, value any) error {
	if !p.json {
		for _, line := range lines {
			if _, err := fmt.Fprintln(p.w, line); err != nil {
				return err
			}
		}
		return nil
	}
	return p.Emit("", value)
}
