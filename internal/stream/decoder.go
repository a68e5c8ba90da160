package stream

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns raw deliveries into UTF-8 text. A multi-byte sequence cut by
// a delivery boundary is held back until the rest of it arrives. Invalid
// bytes decode to U+FFFD and a leading byte order mark is dropped.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8BOM.NewDecoder()}
}

// Decode returns the text of p that can be decoded so far. With atEOF set any
// held back bytes are flushed as replacement characters.
func (d *Decoder) Decode(p []byte, atEOF bool) string {
	src := append(d.pending, p...)
	d.pending = nil
	if len(d.dst) < 2*len(src)+16 {
		d.dst = make([]byte, 2*len(src)+16)
	}

	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out = append(out, d.dst[:nDst]...)
		src = src[nSrc:]

		switch {
		case errors.Is(err, transform.ErrShortDst):
			d.dst = make([]byte, 2*len(d.dst))
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
		}
		return string(out)
	}
}
