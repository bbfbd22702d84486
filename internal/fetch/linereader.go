package fetch

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// bufferSize is the initial capacity of the per-fetch read buffer. It must
	// be at least len(titleTag); see newLineReader and NewTitleExtractor.
	bufferSize = 4 * 1024
)

// lineReader turns a byte stream plus a pre-existing buffer into a sequence of
// CRLF-terminated lines. Bytes read past the last line terminator stay in the
// buffer for subsequent calls or for hand-off to the title extractor; a plain
// bufio line scanner would swallow them.
type lineReader struct {
	buf    []byte
	stream io.Reader
}

func newLineReader(stream io.Reader, buf []byte) *lineReader {
	if cap(buf) < len(titleTag) {
		grown := make([]byte, len(buf), bufferSize)
		copy(grown, buf)
		buf = grown
	}
	return &lineReader{buf: buf, stream: stream}
}

// nextLine returns the next line with the trailing LF and optional CR removed.
// Fully consumed bytes are drained immediately; the unconsumed remainder is
// available through rest().
func (r *lineReader) nextLine() (string, error) {
	if len(r.buf) == 0 {
		if err := r.readMore(); err != nil {
			return "", err
		}
	}

	searched := 0
	for {
		if i := bytes.IndexByte(r.buf[searched:], '\n'); i >= 0 {
			end := searched + i
			line := r.buf[:end]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			if !utf8.Valid(line) {
				return "", fmt.Errorf("%w: header line", ErrNonUTF8Content)
			}
			s := string(line)
			r.buf = r.buf[:copy(r.buf, r.buf[end+1:])]
			return s, nil
		}
		searched = len(r.buf)
		if err := r.readMore(); err != nil {
			return "", err
		}
	}
}

// rest returns the already-read bytes past the last returned line.
func (r *lineReader) rest() []byte {
	return r.buf
}

// readMore requires further bytes: EOF here means the protocol was cut short.
func (r *lineReader) readMore() error {
	buf, n, err := fill(r.stream, r.buf)
	r.buf = buf
	if n > 0 {
		return nil
	}
	if err == nil || err == io.EOF {
		return fmt.Errorf("%w: connection closed", ErrUnexpectedEOF)
	}
	return fmt.Errorf("%w: read: %v", ErrIO, err)
}

// fill appends one read's worth of bytes from the stream to buf, growing it
// when out of spare capacity. It reports the raw read result; callers decide
// what EOF means in their state.
func fill(stream io.Reader, buf []byte) ([]byte, int, error) {
	if len(buf) == cap(buf) {
		grown := make([]byte, len(buf), grow(cap(buf)))
		copy(grown, buf)
		buf = grown
	}

	n, err := stream.Read(buf[len(buf):cap(buf)])
	buf = buf[:len(buf)+n]
	return buf, n, err
}

func grow(c int) int {
	if c == 0 {
		return bufferSize
	}
	return c * 2
}
