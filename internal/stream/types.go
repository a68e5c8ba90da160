package stream

import "errors"

// Wire constants of the event stream.
const (
	DataPrefix   = "data: "
	DoneSentinel = "[DONE]"
)

var (
	// ErrTransport marks a failure of the underlying byte stream. It is fatal
	// to the exchange and is never retried here.
	ErrTransport = errors.New("stream transport failure")
	// ErrRender marks a failure reported by the rendering sink.
	ErrRender = errors.New("stream render failure")
)

// Appender receives content fragments in stream order. It is implemented
// by coalesce.Buffer.
type Appender interface {
	Append(fragment string) error
	Complete() error
}

// Record is the structured payload carried by a data frame.
type Record struct {
	Content string
	Error   string
}
