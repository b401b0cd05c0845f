// Package completion implements the shell completion engine: parsing the
// current argv, routing to a specialised completer or the planner, and
// emitting the NUL-terminated completion protocol.
package completion

import (
	"fmt"
	"io"
	"strings"
)

// Directive is the kind of record the completion engine emits.
type Directive int

const (
	DirectiveComplete Directive = iota
	DirectiveDelegate
)

// Candidate is one completion suggestion, optionally carrying trailing
// documentation shown alongside it.
type Candidate struct {
	Name string
	Doc  string
}

// WriteComplete writes the `complete\n<name>[ ]\n...\n<doc>\n...\x00` frame.
func WriteComplete(w io.Writer, candidates []Candidate) error {
	var b strings.Builder
	b.WriteString("complete\n")
	for _, c := range candidates {
		b.WriteString(c.Name)
		b.WriteString("\n")
	}
	for _, c := range candidates {
		b.WriteString(c.Doc)
		b.WriteString("\n")
	}
	b.WriteByte(0)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("completion: write complete frame: %w", err)
	}
	return nil
}

// WriteDelegate writes the `delegate\n<cmd>\n<arg>\n...\x00` frame that
// instructs the shell layer to run an external command for completion
// (used for file completion on some shell profiles).
func WriteDelegate(w io.Writer, cmd string, args []string) error {
	var b strings.Builder
	b.WriteString("delegate\n")
	b.WriteString(cmd)
	b.WriteString("\n")
	for _, a := range args {
		b.WriteString(a)
		b.WriteString("\n")
	}
	b.WriteByte(0)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("completion: write delegate frame: %w", err)
	}
	return nil
}
