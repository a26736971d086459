package auditlog

import (
	"context"
	"strings"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// Sink is a named engine.LogSink. The name labels metrics and log fields.
type Sink interface {
	engine.LogSink

	// Name returns a short identifier for the sink type (file, sqlite, memory).
	Name() string
}

// Reader reads streams back.
type Reader interface {
	// Streams returns the names of every stream, sorted.
	Streams(ctx context.Context) ([]string, error)

	// Read returns every line of a stream in append order. Reading a stream
	// that was never written returns engine.ErrNotFound.
	Read(ctx context.Context, name string) ([]string, error)
}

// ReadableSink is a sink that can also be read back.
type ReadableSink interface {
	Sink
	Reader
}

func streamNotFound(name string) error {
	return engine.Errorf(engine.CodeNotFound, "No log found for %s.", name).WithResource(name)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine keeps a record on one line so streams split cleanly on newlines.
func singleLine(line string) string {
	return lineBreaks.Replace(line)
}
