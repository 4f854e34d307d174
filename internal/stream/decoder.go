package stream

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns a sequence of byte chunks into text. A multi-byte character
// split across chunks is held back until the rest of it arrives; malformed
// bytes are replaced with U+FFFD rather than failing the stream.
type Decoder struct {
	t         transform.Transformer
	pending   []byte
	malformed int
}

func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text decodable from chunk plus any bytes held back from
// earlier chunks. With atEOF set, held-back bytes are flushed as U+FFFD.
func (d *Decoder) Decode(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	if len(src) == 0 {
		return ""
	}

	// U+FFFD is three bytes, so no input byte expands beyond that.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		if !utf8.Valid(src[:nSrc]) {
			d.malformed++
		}
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]
		if err == transform.ErrShortDst && (nDst > 0 || nSrc > 0) {
			continue
		}
		break
	}

	if len(src) > 0 && !atEOF {
		d.pending = bytes.Clone(src)
	}
	return string(out)
}

// Flush returns whatever is still held back, replacing it with U+FFFD
func (d *Decoder) Flush() string {
	return d.Decode(nil, true)
}

// Malformed counts decode steps that replaced malformed input
func (d *Decoder) Malformed() int {
	return d.malformed
}
