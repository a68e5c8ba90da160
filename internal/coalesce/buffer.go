package coalesce

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"go.uber.org/zap"
)

// Defaults used by the chat client.
const (
	DefaultMinChunkSize = 20
	DefaultMaxDelay     = 50 * time.Millisecond
)

// ErrCompleted is returned by Append once the buffer has been completed.
var ErrCompleted = errors.New("buffer already completed")

// Sink receives rendered units.
type Sink interface {
	// Render displays one batched unit of text.
	Render(unit string) error
	// Done removes any in-progress indicator; no more units follow.
	Done() error
}

// Config holds the two flush triggers.
type Config struct {
	// MinChunkSize is the buffered length, in UTF-16 code units, that
	// forces an immediate flush.
	MinChunkSize int
	// MaxDelay bounds how long buffered text waits for more input.
	MaxDelay time.Duration
}

// Buffer batches small fragments into fewer, larger units. It flushes when
// MinChunkSize characters are buffered or MaxDelay after the first
// unflushed character arrived, whichever happens first.
//
// The deferred flush runs on a timer goroutine; the mutex keeps it from
// interleaving with Append and Flush.
type Buffer struct {
	mu        sync.Mutex
	cfg       Config
	sink      Sink
	clock     Clock
	logger    *zap.Logger
	text      strings.Builder
	size      int
	timer     Timer
	gen       uint64
	completed bool
}

// Option configures a Buffer.
type Option func(*Buffer)

func WithClock(clock Clock) Option {
	return func(b *Buffer) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns a Buffer for one exchange. Non-positive thresholds fall back
// to the defaults.
func New(sink Sink, cfg Config, opts ...Option) *Buffer {
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	b := &Buffer{
		cfg:    cfg,
		sink:   sink,
		clock:  SystemClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append buffers fragment and flushes if the size threshold is reached.
// Otherwise it arms the deferred flush unless one is already pending.
func (b *Buffer) Append(fragment string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.completed {
		return ErrCompleted
	}

	b.text.WriteString(fragment)
	b.size += textLen(fragment)

	if b.size >= b.cfg.MinChunkSize {
		return b.flushLocked()
	}
	if b.timer == nil && b.size > 0 {
		b.gen++
		gen := b.gen
		b.timer = b.clock.AfterFunc(b.cfg.MaxDelay, func() { b.fire(gen) })
	}
	return nil
}

// Flush emits everything buffered as one unit and cancels the deferred
// flush. Flushing an empty buffer emits nothing.
func (b *Buffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// Complete flushes and then tells the sink the exchange is over. Only the
// first call has any effect.
func (b *Buffer) Complete() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.completed {
		return nil
	}
	b.completed = true
	return errors.Join(b.flushLocked(), b.sink.Done())
}

// Clear drops buffered text without emitting it. It is meant for abort paths.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.text.Reset()
	b.size = 0
	b.cancelLocked()
}

// Len returns the buffered length in UTF-16 code units.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Pending reports whether a deferred flush is armed.
func (b *Buffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timer != nil
}

func (b *Buffer) fire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Canceled after the timer had already fired.
	if gen != b.gen || b.timer == nil {
		return
	}
	if err := b.flushLocked(); err != nil {
		b.logger.Error("deferred flush failed", zap.Error(err))
	}
}

func (b *Buffer) flushLocked() error {
	b.cancelLocked()
	if b.size == 0 {
		return nil
	}
	unit := b.text.String()
	b.text.Reset()
	b.size = 0
	return b.sink.Render(unit)
}

func (b *Buffer) cancelLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
}

// textLen measures s the way a JavaScript string length does, so characters
// outside the Basic Multilingual Plane count twice.
func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
