package logging

import (
	"fmt"
	"io"
	"sync"
)

// Message is one user-facing line of progress output.
type Message struct {
	Text        string
	Error       bool
	VerboseOnly bool
}

// Emitter receives progress messages. Components take an Emitter explicitly
// instead of writing to a process-wide logger.
type Emitter interface {
	Emit(msg Message)
}

// EmitFunc adapts a plain function to Emitter.
type EmitFunc func(msg Message)

// Emit calls f(msg).
func (f EmitFunc) Emit(msg Message) { f(msg) }

// Infof emits a normal progress message.
func Infof(e Emitter, format string, args ...interface{}) {
	e.Emit(Message{Text: fmt.Sprintf(format, args...)})
}

// Errorf emits an error message. Errors are shown even in quiet mode.
func Errorf(e Emitter, format string, args ...interface{}) {
	e.Emit(Message{Text: fmt.Sprintf(format, args...), Error: true})
}

// Verbosef emits a message only shown in verbose mode.
func Verbosef(e Emitter, format string, args ...interface{}) {
	e.Emit(Message{Text: fmt.Sprintf(format, args...), VerboseOnly: true})
}

// ConsoleEmitter prints messages to the terminal and mirrors them to a Logger
// at debug level.
type ConsoleEmitter struct {
	out     io.Writer
	errOut  io.Writer
	quiet   bool
	verbose bool
	logger  Logger
	mu      sync.Mutex
}

// NewConsoleEmitter builds a ConsoleEmitter. Quiet drops everything but
// errors; verbose enables VerboseOnly messages.
func NewConsoleEmitter(out, errOut io.Writer, quiet, verbose bool, logger Logger) *ConsoleEmitter {
	return &ConsoleEmitter{
		out:     out,
		errOut:  errOut,
		quiet:   quiet,
		verbose: verbose,
		logger:  logger,
	}
}

// Emit prints msg unless quiet or verbose gating drops it. Errors go to the
// error writer.
func (c *ConsoleEmitter) Emit(msg Message) {
	if c.logger != nil {
		c.logger.Debug(msg.Text, F("error", msg.Error), F("verbose_only", msg.VerboseOnly))
	}
	if msg.VerboseOnly && !c.verbose {
		return
	}
	if c.quiet && !msg.Error {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.out
	if msg.Error {
		w = c.errOut
	}
	if w != nil {
		_, _ = fmt.Fprintln(w, msg.Text)
	}
}

// Recorder is an Emitter that keeps every message, for tests.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Emit appends msg to Messages.
func (r *Recorder) Emit(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
}

// Texts returns the text of every recorded message.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, m.Text)
	}
	return out
}

// Errors returns the text of recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.Messages {
		if m.Error {
			out = append(out, m.Text)
		}
	}
	return out
}
