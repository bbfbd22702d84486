package httputil

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestWriteBodyCompressesLargePayloads(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip, deflate")

	body := []byte(strings.Repeat("<item>link</item>", 100))
	WriteBody(&ctx, "application/rss+xml", body)

	assert.Equal(t, "gzip", string(ctx.Response.Header.Peek(fasthttp.HeaderContentEncoding)))
	assert.Equal(t, "application/rss+xml", string(ctx.Response.Header.ContentType()))

	r, err := gzip.NewReader(bytes.NewReader(ctx.Response.Body()))
	require.NoError(t, err)
	decompressed, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, decompressed)
}

func TestWriteBodySkipsSmallPayloads(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")

	body := []byte("tiny")
	WriteBody(&ctx, "text/html; charset=utf-8", body)

	assert.Empty(t, ctx.Response.Header.Peek(fasthttp.HeaderContentEncoding))
	assert.Equal(t, body, ctx.Response.Body())
}

func TestWriteBodySkipsWithoutAcceptEncoding(t *testing.T) {
	var ctx fasthttp.RequestCtx

	body := []byte(strings.Repeat("x", 2048))
	WriteBody(&ctx, "text/html; charset=utf-8", body)

	assert.Empty(t, ctx.Response.Header.Peek(fasthttp.HeaderContentEncoding))
	assert.Equal(t, body, ctx.Response.Body())
}
