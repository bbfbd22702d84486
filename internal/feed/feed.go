// Package feed renders the stored articles as an RSS channel or an HTML
// page with a weekly activity calendar.
package feed

import "time"

// MaxWeeks is the number of ISO weeks a year can span, and the number of
// squares the calendar always shows.
const MaxWeeks = 53

// Item is one article entry in the feed.
type Item struct {
	Title   string
	Link    string
	GUID    string
	PubDate time.Time
}

// Channel describes the feed itself.
type Channel struct {
	Title       string
	Description string
	Link        string
	BuildTime   time.Time
}

// Writer renders a feed into one output format. Weekly holds per-week save
// counts for the current year, ordered by week; formats that have no use for
// them ignore the slice.
type Writer interface {
	ContentType() string
	Render(ch Channel, weekly []int, items []Item) []byte
}

// httpDate formats t the way HTTP and RSS want their dates.
func httpDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}
