package httputil

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fasthttp"
)

// Payloads below this size tend to grow when gzipped.
const minCompressSize = 512

// WriteBody sends body with the given content type, gzip-compressed when the
// client accepts it and the payload is large enough to benefit.
func WriteBody(ctx *fasthttp.RequestCtx, contentType string, body []byte) {
	ctx.SetContentType(contentType)

	if len(body) < minCompressSize || !ctx.Request.Header.HasAcceptEncoding("gzip") {
		ctx.SetBody(body)
		return
	}

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(body)
	w.Close()

	ctx.Response.Header.Set(fasthttp.HeaderContentEncoding, "gzip")
	ctx.SetBody(buf.Bytes())
}
