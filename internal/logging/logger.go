// Package logging hides the concrete logging framework behind a small
// structured interface, and provides the user-facing Emitter used to report
// progress on the terminal.
package logging

// Logger is the structured logger passed to every component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError returns a derived logger carrying err.
	WithError(err error) Logger
	// WithField returns a derived logger carrying one extra field.
	WithField(key string, value interface{}) Logger
	// WithFields returns a derived logger carrying the given fields.
	WithFields(fields ...Field) Logger

	Fatal(msg string, fields ...Field)
	Fatalf(msg string, args ...interface{})
}

// Field is a key/value pair attached to a log record.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
