package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Progress prints numbered stages for multi-step operations such as VM
// provisioning.
type Progress struct {
	out      io.Writer
	total    int
	current  int
	jsonMode bool
}

// NewProgress creates a Progress with the given total number of stages.
func NewProgress(total int) *Progress {
	return &Progress{
		out:   os.Stdout,
		total: total,
	}
}

// SetJSONMode suppresses progress output.
func (p *Progress) SetJSONMode(jsonMode bool) {
	p.jsonMode = jsonMode
}

// Stage prints the next stage in the format "[N/M] Description...".
func (p *Progress) Stage(description string) {
	if p.jsonMode {
		return
	}
	p.current++
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(p.out, "[%d/%d] %s...\n", p.current, p.total, description)
}

// Done prints a completion message.
func (p *Progress) Done(message string) {
	if p.jsonMode {
		return
	}
	green := color.New(color.FgGreen)
	green.Fprintf(p.out, "✓ %s\n", message)
}

// Spinner marks the start and end of a single indeterminate step.
type Spinner struct {
	out      io.Writer
	message  string
	jsonMode bool
}

// NewSpinner creates a Spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		out:     os.Stdout,
		message: message,
	}
}

// SetJSONMode suppresses spinner output.
func (s *Spinner) SetJSONMode(jsonMode bool) {
	s.jsonMode = jsonMode
}

// Start prints the step message without a trailing newline.
func (s *Spinner) Start() {
	if s.jsonMode {
		return
	}
	fmt.Fprintf(s.out, "%s... ", s.message)
}

// Stop finishes the step line with "done" or "failed".
func (s *Spinner) Stop(success bool) {
	if s.jsonMode {
		return
	}
	if success {
		green := color.New(color.FgGreen)
		green.Fprintln(s.out, "done")
	} else {
		red := color.New(color.FgRed)
		red.Fprintln(s.out, "failed")
	}
}
