package feed

import (
	"bytes"
	_ "embed"
	"html"
	"strconv"
)

//go:embed style.css
var styleCSS string

// HTMLWriter renders the feed as a standalone HTML page: header, weekly
// activity calendar and the article list with delete buttons.
type HTMLWriter struct{}

func NewHTMLWriter() *HTMLWriter {
	return &HTMLWriter{}
}

func (*HTMLWriter) ContentType() string {
	return "text/html; charset=utf-8"
}

func (*HTMLWriter) Render(ch Channel, weekly []int, items []Item) []byte {
	var buf bytes.Buffer

	writeHead(&buf, ch)
	writeCalendar(&buf, weekly)
	writeItems(&buf, items)

	buf.WriteString("</body></html>")

	return buf.Bytes()
}

func writeHead(buf *bytes.Buffer, ch Channel) {
	title := html.EscapeString(ch.Title)
	link := html.EscapeString(ch.Link)

	buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`)
	buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">`)
	buf.WriteString("<title>")
	buf.WriteString(title)
	buf.WriteString("</title><style>")
	buf.WriteString(styleCSS)
	buf.WriteString("</style></head><body>")

	buf.WriteString("<h1>")
	buf.WriteString(title)
	buf.WriteString("</h1>")

	buf.WriteString("<h3>")
	buf.WriteString(html.EscapeString(ch.Description))
	buf.WriteString("</h3>")

	buf.WriteString(`<div class="feed-info">`)
	buf.WriteString(`<p>Feed: <a href="`)
	buf.WriteString(link)
	buf.WriteString(`">`)
	buf.WriteString(link)
	buf.WriteString("</a></p>")
	buf.WriteString("<p>Last Updated: ")
	buf.WriteString(httpDate(ch.BuildTime))
	buf.WriteString("</p>")
	buf.WriteString("</div>")

	buf.WriteString(`<div class="month-labels">` +
		"<span>Jan</span><span>Mar</span><span>Jun</span><span>Sep</span><span>Dec</span>" +
		"</div>")
}

// writeCalendar draws one square per week of the year. Squares past the
// provided counts render as empty weeks.
func writeCalendar(buf *bytes.Buffer, weekly []int) {
	if len(weekly) > MaxWeeks {
		weekly = weekly[:MaxWeeks]
	}

	max := 0
	for _, count := range weekly {
		if count > max {
			max = count
		}
	}

	buf.WriteString(`<div class="calendar" style="--max-articles: `)
	buf.WriteString(strconv.Itoa(max))
	buf.WriteString(`;">`)

	for _, count := range weekly {
		writeWeekSquare(buf, count)
	}
	for i := len(weekly); i < MaxWeeks; i++ {
		writeWeekSquare(buf, 0)
	}

	buf.WriteString("</div>")
}

func writeWeekSquare(buf *bytes.Buffer, count int) {
	n := strconv.Itoa(count)
	buf.WriteString(`<div class="week-square" style="--articles: `)
	buf.WriteString(n)
	buf.WriteString(`;" title="`)
	buf.WriteString(n)
	buf.WriteString(` articles"></div>`)
}

func writeItems(buf *bytes.Buffer, items []Item) {
	buf.WriteString(`<ul class="feed-items">`)

	for _, item := range items {
		buf.WriteString(`<li><article class="feed-item"><h2><a href="`)
		buf.WriteString(html.EscapeString(item.Link))
		buf.WriteString(`">`)
		buf.WriteString(html.EscapeString(item.Title))
		buf.WriteString(`</a></h2><div class="published-date"> Published: `)
		buf.WriteString(httpDate(item.PubDate))
		buf.WriteString(`</div><form method="POST" action="/delete" style="display: inline;">` +
			`<input type="hidden" name="guid" value="`)
		buf.WriteString(html.EscapeString(item.GUID))
		buf.WriteString(`"><button type="submit" class="delete-btn">Delete</button></form></article></li>`)
	}

	buf.WriteString("</ul>")
}
