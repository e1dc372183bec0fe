package secrets

import (
	"io"
	"os"

	"github.com/colpal/dataeng-container-tools/internal/redact"
	"github.com/colpal/dataeng-container-tools/internal/replacer"
)

// Writer wraps an output sink and masks registered secrets with asterisk
// runs the same length as the secret, preserving the layout of whatever
// surrounds them. The wrapped sink's lifecycle stays with the caller; Writer
// neither opens nor closes it.
type Writer struct {
	registry *Registry
	sink     io.Writer
	rep      *replacer.Replacer
}

// NewWriter wraps sink with a censoring writer attached to this registry.
// Values registered later are masked by this writer too.
func (r *Registry) NewWriter(sink io.Writer) *Writer {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := &Writer{
		registry: r,
		sink:     sink,
		rep:      replacer.New(sink, r.order, redact.Asterisks),
	}
	r.writers = append(r.writers, w)
	return w
}

// Write masks registered secrets in p and forwards the result. Bytes that
// could be the start of a secret are withheld until the match resolves or
// Flush is called. Only sink errors are ever returned.
func (w *Writer) Write(p []byte) (int, error) {
	return w.rep.Write(p)
}

// Flush forwards any withheld bytes, treating unfinished matches as
// non-matches. Call it when the stream ends.
func (w *Writer) Flush() error {
	return w.rep.Flush()
}

// Sink returns the raw wrapped sink, bypassing censorship. This exists for
// binary-safe passthrough; anything written to it is NOT masked.
func (w *Writer) Sink() io.Writer {
	return w.sink
}

// AddWords registers values with the writer's registry. Sugar for callers
// holding only the writer.
func (w *Writer) AddWords(words ...string) {
	w.registry.Register(words...)
}

// WrapStandardStreams returns censoring writers over os.Stdout and
// os.Stderr. Scripts should install these before producing any output and
// route everything through them for the life of the process.
func (r *Registry) WrapStandardStreams() (stdout, stderr *Writer) {
	return r.NewWriter(os.Stdout), r.NewWriter(os.Stderr)
}
