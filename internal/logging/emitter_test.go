package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleEmitter(t *testing.T) {
	tests := []struct {
		name      string
		quiet     bool
		verbose   bool
		wantOut   string
		wantError string
	}{
		{name: "default hides verbose", wantOut: "info\n", wantError: "oops\n"},
		{name: "verbose shows everything", verbose: true, wantOut: "info\ndetail\n", wantError: "oops\n"},
		{name: "quiet keeps only errors", quiet: true, wantOut: "", wantError: "oops\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			logger := NewMockLogger()
			e := NewConsoleEmitter(&out, &errOut, tt.quiet, tt.verbose, logger)

			Infof(e, "info")
			Verbosef(e, "detail")
			Errorf(e, "oops")

			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantError, errOut.String())
			assert.Len(t, logger.EntriesByLevel("DEBUG"), 3)
		})
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	Infof(r, "a %d", 1)
	Errorf(r, "b")
	EmitFunc(func(m Message) { r.Emit(m) }).Emit(Message{Text: "c", VerboseOnly: true})

	assert.Equal(t, []string{"a 1", "b", "c"}, r.Texts())
	assert.Equal(t, []string{"b"}, r.Errors())
}
