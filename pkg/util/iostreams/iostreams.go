// Package iostreams wraps the process streams so commands write through a
// single seam that tests can capture.
package iostreams

import (
	"fmt"
	"io"
)

// Interface is the stream surface commands write to.
type Interface interface {
	// Fprintf writes formatted output to Out with a trailing newline.
	Fprintf(format string, args ...any)
	// Fprintln writes output to Out with a trailing newline.
	Fprintln(args ...any)
	// Errorf writes formatted output to ErrOut with a trailing newline.
	Errorf(format string, args ...any)
	// Errorln writes output to ErrOut with a trailing newline.
	Errorln(args ...any)
	Out() io.Writer
	In() io.Reader
	ErrOut() io.Writer
}

// IOStreams bundles input, output, and error streams.
type IOStreams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewIOStreams creates an IOStreams over the given readers and writers.
func NewIOStreams(in io.Reader, out io.Writer, errOut io.Writer) *IOStreams {
	return &IOStreams{
		in:     in,
		out:    out,
		errOut: errOut,
	}
}

// Fprintf writes formatted output to Out with a trailing newline. When no
// args are given the format string is written verbatim.
func (s *IOStreams) Fprintf(format string, args ...any) {
	if s.out == nil {
		return
	}

	var message string
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	} else {
		message = format
	}

	_, _ = fmt.Fprintln(s.out, message)
}

// Fprintln writes output to Out with a trailing newline.
func (s *IOStreams) Fprintln(args ...any) {
	if s.out == nil {
		return
	}

	_, _ = fmt.Fprintln(s.out, args...)
}

// Errorf writes formatted output to ErrOut with a trailing newline. When no
// args are given the format string is written verbatim.
func (s *IOStreams) Errorf(format string, args ...any) {
	if s.errOut == nil {
		return
	}

	var message string
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	} else {
		message = format
	}

	_, _ = fmt.Fprintln(s.errOut, message)
}

// Errorln writes output to ErrOut with a trailing newline.
func (s *IOStreams) Errorln(args ...any) {
	if s.errOut == nil {
		return
	}

	_, _ = fmt.Fprintln(s.errOut, args...)
}

func (s *IOStreams) Out() io.Writer {
	return s.out
}

func (s *IOStreams) In() io.Reader {
	return s.in
}

func (s *IOStreams) ErrOut() io.Writer {
	return s.errOut
}
