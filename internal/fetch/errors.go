package fetch

import "errors"

// Error kinds surfaced by the fetch core. Each failure aborts the current
// fetch and is matched by callers with errors.Is; wrapped messages carry the
// underlying detail.
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrConnect           = errors.New("connect failed")
	ErrTLSHandshake      = errors.New("tls handshake failed")
	ErrIO                = errors.New("i/o error")
	ErrUnexpectedEOF     = errors.New("unexpected end of stream")
	ErrProtocol          = errors.New("protocol violation")
	ErrMissingHeader     = errors.New("expected header not found")
	ErrUnexpectedStatus  = errors.New("unexpected status code")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrInvalidRedirect   = errors.New("invalid redirect target")
	ErrNonUTF8Content    = errors.New("content is not valid utf-8")
)

// ErrorKind returns a short stable label for an error from this package,
// suitable as a metrics dimension. Unknown errors map to "other".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrUnsupportedScheme):
		return "unsupported_scheme"
	case errors.Is(err, ErrConnect):
		return "connect"
	case errors.Is(err, ErrTLSHandshake):
		return "tls_handshake"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrUnexpectedEOF):
		return "unexpected_eof"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrMissingHeader):
		return "missing_header"
	case errors.Is(err, ErrUnexpectedStatus):
		return "unexpected_status"
	case errors.Is(err, ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.Is(err, ErrInvalidRedirect):
		return "invalid_redirect"
	case errors.Is(err, ErrNonUTF8Content):
		return "non_utf8"
	default:
		return "other"
	}
}
