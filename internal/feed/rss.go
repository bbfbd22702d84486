package feed

import (
	"bytes"
	"encoding/xml"
)

// RSSWriter renders an RSS 2.0 document. The weekly calendar has no RSS
// representation and is skipped.
type RSSWriter struct{}

func NewRSSWriter() *RSSWriter {
	return &RSSWriter{}
}

func (*RSSWriter) ContentType() string {
	return "application/rss+xml"
}

func (*RSSWriter) Render(ch Channel, _ []int, items []Item) []byte {
	var buf bytes.Buffer

	date := httpDate(ch.BuildTime)

	buf.WriteString(`<rss version="2.0">`)
	buf.WriteString("<channel>")

	writeElement(&buf, "title", ch.Title)
	writeElement(&buf, "description", ch.Description)
	writeElement(&buf, "link", ch.Link)
	writeElement(&buf, "pubDate", date)
	writeElement(&buf, "lastBuildDate", date)
	buf.WriteString("<ttl>0</ttl>")

	for _, item := range items {
		buf.WriteString("<item>")
		writeElement(&buf, "title", item.Title)
		writeElement(&buf, "link", item.Link)
		writeElement(&buf, "pubDate", httpDate(item.PubDate))
		writeElement(&buf, "guid", item.GUID)
		buf.WriteString("</item>")
	}

	buf.WriteString("</channel>")
	buf.WriteString("</rss>")

	return buf.Bytes()
}

func writeElement(buf *bytes.Buffer, name, value string) {
	buf.WriteByte('<')
	buf.WriteString(name)
	buf.WriteByte('>')
	xml.EscapeText(buf, []byte(value))
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
}
