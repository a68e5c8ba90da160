package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// errTruncated reports that the accumulated payload is a valid prefix of a
// record that has not fully arrived yet.
var errTruncated = errors.New("record truncated")

// Reassembler joins payload fragments until they form one complete record.
type Reassembler struct {
	acc    string
	logger *zap.Logger
}

func NewReassembler(logger *zap.Logger) *Reassembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reassembler{logger: logger}
}

// Feed adds one payload fragment. It returns the record content once the
// accumulated fragments parse, and ok is false while nothing is ready.
func (r *Reassembler) Feed(payload string) (content string, ok bool) {
	r.acc += payload

	rec, err := decodeRecord(r.acc)
	switch {
	case err == nil:
		r.acc = ""
		if rec.Error != "" {
			r.logger.Warn("stream reported an error", zap.String("error", rec.Error))
		}
		return rec.Content, rec.Content != ""
	case errors.Is(err, errTruncated):
		return "", false
	default:
		// The fragment may still complete on the next payload.
		r.logger.Warn("malformed record",
			zap.Error(err),
			zap.Int("accumulated_bytes", len(r.acc)))
		return "", false
	}
}

// Finish makes a last attempt on whatever is left at end of stream. A
// residual that still does not parse is dropped.
func (r *Reassembler) Finish() (content string, ok bool) {
	if r.acc == "" {
		return "", false
	}
	residual := r.acc
	r.acc = ""

	rec, err := decodeRecord(residual)
	if err != nil {
		r.logger.Debug("discarding unparseable residual",
			zap.Error(err),
			zap.Int("residual_bytes", len(residual)))
		return "", false
	}
	return rec.Content, rec.Content != ""
}

// Pending returns the accumulated, not yet parsed payload.
func (r *Reassembler) Pending() string {
	return r.acc
}

// decodeRecord parses exactly one JSON value from s. Truncation is detected
// from the decoder's io.ErrUnexpectedEOF rather than from error text.
func decodeRecord(s string) (Record, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	// Numbers stay textual so a value outside float64 range is not an error.
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, errTruncated
		}
		return Record{}, err
	}
	if rest := strings.TrimSpace(s[dec.InputOffset():]); rest != "" {
		return Record{}, fmt.Errorf("unexpected data after record at offset %d", dec.InputOffset())
	}

	var rec Record
	if obj, ok := v.(map[string]any); ok {
		rec.Content, _ = obj["content"].(string)
		rec.Error, _ = obj["error"].(string)
	}
	return rec, nil
}
