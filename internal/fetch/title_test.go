package fetch

import (
	"context"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, ex *TitleExtractor) (string, bool) {
	t.Helper()
	title, found, err := ex.ExtractTitle(context.Background())
	require.NoError(t, err)
	return title, found
}

func TestExtractTitleCaseInsensitive(t *testing.T) {
	html := `
		<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 3.2 Final//EN">
		<HTML>
			<HEAD>
				<META NAME="foo" CONTENT="bar">
				<tItLe>Hello Title!</tItLe>
			</HEAD>
			<BODY>
			</BODY>
		</HTML>
	`

	ex := NewTitleExtractor(strings.NewReader(html), nil)
	title, found := extract(t, ex)

	assert.True(t, found)
	assert.Equal(t, "Hello Title!", title)
}

func TestExtractTitleWithNonEmptyBuffer(t *testing.T) {
	// Pre-existing buffer content is body noise the extractor must scan
	// through, not skip.
	ex := NewTitleExtractor(strings.NewReader("<title>Read Me!</title>"), []byte("FFFFFFFF"))
	title, found := extract(t, ex)

	assert.True(t, found)
	assert.Equal(t, "Read Me!", title)
}

func TestExtractTitleAbsent(t *testing.T) {
	html := `
		<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 3.2 Final//EN">
		<HTML>
			<HEAD>
				<META NAME="foo" CONTENT="bar">
			</HEAD>
			<BODY>
			</BODY>
		</HTML>
	`

	ex := NewTitleExtractor(strings.NewReader(html), nil)
	title, found := extract(t, ex)

	assert.False(t, found)
	assert.Empty(t, title)
}

func TestExtractTitleOneBytePerRead(t *testing.T) {
	// A tag split across every possible read boundary must still match.
	html := "<html><head><title>Split Across Reads</title></head></html>"

	ex := NewTitleExtractor(iotest.OneByteReader(strings.NewReader(html)), nil)
	title, found := extract(t, ex)

	assert.True(t, found)
	assert.Equal(t, "Split Across Reads", title)
}

func TestExtractTitleSplitAcrossBufferAndStream(t *testing.T) {
	// The handed-over buffer ends mid-tag; the rest arrives from the stream.
	ex := NewTitleExtractor(strings.NewReader("tle>Hi</title>"), []byte("<ti"))
	title, found := extract(t, ex)

	assert.True(t, found)
	assert.Equal(t, "Hi", title)
}

func TestExtractTitleFirstOccurrenceWins(t *testing.T) {
	html := "<title>First</title><title>Second</title>"

	ex := NewTitleExtractor(strings.NewReader(html), nil)
	title, found := extract(t, ex)

	assert.True(t, found)
	assert.Equal(t, "First", title)
}

func TestExtractTitleWithAttributes(t *testing.T) {
	html := `<title data-side="left" lang="en">Attributed</title>`

	ex := NewTitleExtractor(strings.NewReader(html), nil)
	title, found := extract(t, ex)

	assert.True(t, found)
	assert.Equal(t, "Attributed", title)
}

func TestExtractTitleLossyDecode(t *testing.T) {
	// Invalid UTF-8 inside the title is replaced, not rejected.
	ex := NewTitleExtractor(strings.NewReader("<title>bad\xffbyte</title>"), nil)
	title, found := extract(t, ex)

	assert.True(t, found)
	assert.Equal(t, "bad�byte", title)
}

func TestExtractTitleBoundedMemoryOnNoise(t *testing.T) {
	// A megabyte of tag-free noise must not grow the buffer: only a
	// titleTag-sized tail may be retained between reads.
	noise := strings.Repeat("a", 1<<20)

	ex := NewTitleExtractor(strings.NewReader(noise), nil)
	_, found := extract(t, ex)

	assert.False(t, found)
	assert.LessOrEqual(t, len(ex.buf), len(titleTag))
	assert.Equal(t, bufferSize, cap(ex.buf))
}

func TestExtractTitleEOFMidTag(t *testing.T) {
	ex := NewTitleExtractor(strings.NewReader("<title>never closed"), nil)
	title, found := extract(t, ex)

	assert.False(t, found)
	assert.Empty(t, title)
}

func TestExtractTitleBufferCapacityPrecondition(t *testing.T) {
	// A handed-over buffer smaller than the tag name is regrown, never used
	// as-is.
	ex := NewTitleExtractor(strings.NewReader("<title>ok</title>"), make([]byte, 0, 2))
	require.GreaterOrEqual(t, cap(ex.buf), len(titleTag))

	title, found := extract(t, ex)
	assert.True(t, found)
	assert.Equal(t, "ok", title)
}
