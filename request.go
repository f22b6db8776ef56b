package callapi

import (
	"bytes"
	"io"
	"net/http"
)

// Request is the fully resolved, transport-level shape of one call attempt:
// final URL, upper-cased method, merged headers and the serialized body.
// Hooks may mutate it until the request is dispatched; after dispatch it must
// be treated as read-only.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// onUpload is installed by the client when request-stream handlers are
	// registered, so transports reading through BodyReader report progress.
	onUpload func(chunk []byte, transferred int64) error
}

// BodyReader returns a fresh reader over the serialized body, or nil when the
// request has none. Transports should obtain the body through this method so
// upload progress events fire as the body is consumed.
func (r *Request) BodyReader() io.Reader {
	if len(r.Body) == 0 {
		return nil
	}
	br := bytes.NewReader(r.Body)
	if r.onUpload == nil {
		return br
	}
	return &progressReader{r: br, onChunk: r.onUpload}
}

// ContentLength returns the serialized body length in bytes.
func (r *Request) ContentLength() int64 {
	return int64(len(r.Body))
}
