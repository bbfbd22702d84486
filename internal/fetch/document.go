package fetch

import "net/url"

// DocumentKind classifies a fetched document by its Content-Type.
type DocumentKind uint8

const (
	DocUnsupported DocumentKind = iota
	DocHTML
	DocPDF
)

func (k DocumentKind) String() string {
	switch k {
	case DocHTML:
		return "html"
	case DocPDF:
		return "pdf"
	default:
		return "unsupported"
	}
}

// Document is the classified result of a fetch. For DocHTML, Body exclusively
// owns the live transport and any body bytes already read during header
// classification; the caller drives it to completion and closes it. For the
// other kinds the connection is already released and Close is a no-op.
type Document struct {
	Kind DocumentKind
	URL  *url.URL
	Body *TitleExtractor
}

// Close releases the connection still held by an HTML document's extractor.
func (d *Document) Close() error {
	if d.Body != nil {
		return d.Body.Close()
	}
	return nil
}
