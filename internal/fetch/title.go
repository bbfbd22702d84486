package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// titleTag is the literal ASCII tag name the extractor matches. The read
// buffer capacity must never drop below its length so a split "<title" can
// always be retained across read boundaries.
const titleTag = "title"

type extractState uint8

const (
	stateStart extractState = iota
	stateName
	stateAttributes
	stateValue
)

// TitleExtractor scans an HTML byte stream for the first <title> element and
// returns its text content without buffering the body. It owns the transport
// it reads from plus any bytes the header stage read past the blank line;
// nothing else may read from the same stream.
type TitleExtractor struct {
	stream io.Reader
	buf    []byte
}

// NewTitleExtractor wraps a stream and the residual buffer handed over by the
// response header stage. The buffer contents are treated as the leading bytes
// of the body.
func NewTitleExtractor(stream io.Reader, buf []byte) *TitleExtractor {
	if cap(buf) < len(titleTag) {
		grown := make([]byte, len(buf), bufferSize)
		copy(grown, buf)
		buf = grown
	}
	return &TitleExtractor{stream: stream, buf: buf}
}

// ExtractTitle runs the scan to completion. The boolean reports whether a
// title was found; reaching EOF without one is success with no title, never
// an error. The scan is single-pass and holds at most len(titleTag) bytes of
// undecided input while searching, so memory stays bounded on any input.
func (e *TitleExtractor) ExtractTitle(ctx context.Context) (string, bool, error) {
	state := stateStart
	var title []byte

	for {
		switch state {
		case stateStart:
			if i := bytes.IndexByte(e.buf, '<'); i >= 0 {
				e.drain(i + 1)
				state = stateName
				continue
			}
			// No tag start in sight. Everything except a titleTag-sized tail
			// is noise; the tail may be the head of a split "<title".
			if extra := len(e.buf) - len(titleTag); extra > 0 {
				e.drain(extra)
			}

		case stateName:
			if len(e.buf) >= len(titleTag) {
				if asciiEqualFold(e.buf[:len(titleTag)], titleTag) {
					state = stateAttributes
				} else {
					// Not a title tag. Re-searching for the next '<' from the
					// current position covers any tag start inside these bytes.
					state = stateStart
				}
				continue
			}

		case stateAttributes:
			if i := bytes.IndexByte(e.buf, '>'); i >= 0 {
				e.drain(i + 1)
				title = title[:0]
				state = stateValue
				continue
			}
			// Attributes are skipped, not parsed.
			e.buf = e.buf[:0]

		case stateValue:
			if i := bytes.IndexByte(e.buf, '<'); i >= 0 {
				title = append(title, e.buf[:i]...)
				return decodeLossy(title), true, nil
			}
			title = append(title, e.buf...)
			e.buf = e.buf[:0]
		}

		// The buffered bytes cannot decide the current state; await more.
		if err := ctx.Err(); err != nil {
			return "", false, fmt.Errorf("%w: %v", ErrIO, err)
		}

		buf, n, err := fill(e.stream, e.buf)
		e.buf = buf
		if n > 0 {
			continue
		}
		if err == nil || err == io.EOF {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: read body: %v", ErrIO, err)
	}
}

// Close releases the underlying transport, if any.
func (e *TitleExtractor) Close() error {
	if c, ok := e.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (e *TitleExtractor) drain(n int) {
	e.buf = e.buf[:copy(e.buf, e.buf[n:])]
}

// asciiEqualFold compares b against the lower-case ASCII literal tag,
// ignoring letter case in b.
func asciiEqualFold(b []byte, tag string) bool {
	if len(b) != len(tag) {
		return false
	}
	for i := 0; i < len(tag); i++ {
		if b[i]|0x20 != tag[i] {
			return false
		}
	}
	return true
}

// decodeLossy converts title bytes to a string, replacing invalid UTF-8
// sequences. The final decode is deliberately permissive; per-chunk
// validation would reject titles split mid-rune across reads.
func decodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
