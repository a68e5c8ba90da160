package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markis/chatstream/internal/coalesce"
	"github.com/markis/chatstream/internal/stream"
)

// ErrBusy is returned when an exchange is started while another one is
// still running.
var ErrBusy = errors.New("an exchange is already in progress")

// Kind selects the user-facing fallback message of an exchange.
type Kind int

const (
	KindMessage Kind = iota
	KindWelcome
)

func (k Kind) fallback() string {
	if k == KindWelcome {
		return "Failed to get welcome message. Please try again."
	}
	return "Sorry, there was an error processing your request."
}

func (k Kind) String() string {
	if k == KindWelcome {
		return "welcome"
	}
	return "message"
}

// Sink is the output surface one exchange renders into.
type Sink interface {
	coalesce.Sink
	ShowIndicator()
	Abort()
	Notice(msg string)
}

// Opener starts the transport of one exchange.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// Runner drives exchanges one at a time. Every exchange gets its own
// coalescing buffer and stream processor.
type Runner struct {
	sink     Sink
	cfg      coalesce.Config
	clock    coalesce.Clock
	logger   *zap.Logger
	inFlight atomic.Bool
}

type Option func(*Runner)

func WithClock(clock coalesce.Clock) Option {
	return func(r *Runner) { r.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(sink Sink, cfg coalesce.Config, opts ...Option) *Runner {
	r := &Runner{
		sink:   sink,
		cfg:    cfg,
		clock:  coalesce.SystemClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one exchange. On a transport failure the buffered output is
// discarded, the indicator removed and the fallback message shown; the
// error is returned either way.
func (r *Runner) Run(ctx context.Context, kind Kind, open Opener) error {
	if !r.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer r.inFlight.Store(false)

	logger := r.logger.With(
		zap.String("exchange_id", uuid.NewString()),
		zap.Stringer("kind", kind))

	r.sink.ShowIndicator()
	buf := coalesce.New(r.sink, r.cfg,
		coalesce.WithClock(r.clock),
		coalesce.WithLogger(logger))

	body, err := open(ctx)
	if err != nil {
		return r.fail(logger, kind, buf, fmt.Errorf("%w: %w", stream.ErrTransport, err))
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Debug("failed to close stream", zap.Error(err))
		}
	}()
	// A Read blocked on the transport only returns once the body is closed.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	proc := stream.NewProcessor(buf, stream.WithLogger(logger))
	if err := proc.Process(ctx, body); err != nil {
		return r.fail(logger, kind, buf, err)
	}

	logger.Debug("exchange complete")
	return nil
}

func (r *Runner) fail(logger *zap.Logger, kind Kind, buf *coalesce.Buffer, err error) error {
	buf.Clear()
	r.sink.Abort()
	if errors.Is(err, stream.ErrTransport) {
		r.sink.Notice(kind.fallback())
	}
	logger.Error("exchange failed", zap.Error(err))
	return err
}
