package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const defaultReadSize = 4096

// Processor decodes one exchange's event stream and pushes every content
// fragment, in order, into an Appender. A Processor is single use.
type Processor struct {
	out      Appender
	decoder  *Decoder
	splitter Splitter
	records  *Reassembler
	logger   *zap.Logger
	readSize int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithReadSize sets the size of the buffer handed to each Read call.
func WithReadSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.readSize = n
		}
	}
}

func NewProcessor(out Appender, opts ...Option) *Processor {
	p := &Processor{
		out:      out,
		decoder:  NewDecoder(),
		logger:   zap.NewNop(),
		readSize: defaultReadSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.records = NewReassembler(p.logger)
	return p
}

// Process consumes r until EOF and then completes the Appender exactly once.
// Each Read is handled in full before the next one is issued.
//
// A read error or a canceled ctx is returned wrapped in ErrTransport and the
// Appender is left uncompleted; releasing it is up to the caller. ctx is only
// checked between reads, so a caller whose reader can block indefinitely
// should close it when ctx is done.
func (p *Processor) Process(ctx context.Context, r io.Reader) error {
	done := ctx.Done()
	chunk := make([]byte, p.readSize)

	for {
		select {
		case <-done:
			return fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
		default:
		}

		n, err := r.Read(chunk)
		if n > 0 {
			if perr := p.deliver(p.decoder.Decode(chunk[:n], false)); perr != nil {
				return perr
			}
		}
		if errors.Is(err, io.EOF) {
			return p.finish()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %w: %w", ErrTransport, ctxErr, err)
			}
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}
}

func (p *Processor) deliver(text string) error {
	for _, frame := range p.splitter.Split(text) {
		kind, payload := ParseFrame(frame)
		if kind != FrameData {
			continue
		}
		if content, ok := p.records.Feed(payload); ok {
			if err := p.out.Append(content); err != nil {
				return fmt.Errorf("%w: %w", ErrRender, err)
			}
		}
	}
	return nil
}

func (p *Processor) finish() error {
	// Frames need a terminator, so a flushed tail can only extend the
	// unterminated remainder.
	if tail := p.decoder.Decode(nil, true); tail != "" {
		p.splitter.Split(tail)
	}
	if rest := p.splitter.Pending(); rest != "" {
		p.logger.Debug("dropping unterminated frame", zap.Int("bytes", len(rest)))
	}

	var appendErr error
	if content, ok := p.records.Finish(); ok {
		appendErr = p.out.Append(content)
	}
	if err := errors.Join(appendErr, p.out.Complete()); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}
