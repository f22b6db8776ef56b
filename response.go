package callapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// Response is what a Transport produces. Transports hand the body back as a
// stream; the client drains it (feeding response-stream handlers), then
// replaces it with an in-memory reader so the body can be re-read by result
// construction and shared with deduplicated callers.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser

	raw      []byte
	drained  bool
	drainErr error
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentLength returns the advertised body length, or -1 when unknown.
func (r *Response) ContentLength() int64 {
	if r.Header == nil {
		return -1
	}
	v := r.Header.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Bytes returns the drained body. It drains the stream on first use if the
// client has not already done so.
func (r *Response) Bytes() []byte {
	r.ensureDrained()
	return r.raw
}

// Text returns the drained body as a string.
func (r *Response) Text() string {
	return string(r.Bytes())
}

// JSON decodes the drained body into v.
func (r *Response) JSON(v any) error {
	r.ensureDrained()
	if r.drainErr != nil {
		return r.drainErr
	}
	return json.Unmarshal(r.raw, v)
}

// finalize installs the drained body and replaces the stream with an
// in-memory reader, mirroring how net/http responses are restored after a
// full read.
func (r *Response) finalize(raw []byte) {
	r.raw = raw
	r.drained = true
	r.Body = io.NopCloser(bytes.NewReader(raw))
}

// ensureDrained reads the remaining stream when the response was produced
// outside the client's own drain step. Not safe for concurrent use until the
// call that produced the response has completed.
func (r *Response) ensureDrained() {
	if r.drained {
		return
	}
	r.drained = true
	if r.Body == nil {
		return
	}
	raw, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.raw, r.drainErr = raw, err
	r.Body = io.NopCloser(bytes.NewReader(raw))
}

// parseResponseData decodes a drained body according to the response type, or
// delegates to a caller-supplied parser.
func parseResponseData(resp *Response, typ ResponseType, parser ResponseParser) (any, error) {
	raw := resp.Bytes()
	if resp.drainErr != nil {
		return nil, resp.drainErr
	}
	if parser != nil {
		return parser(raw)
	}

	switch typ {
	case ResponseTypeBytes:
		return raw, nil
	case ResponseTypeText:
		return string(raw), nil
	case ResponseTypeJSON:
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		// Auto: JSON when the body parses as JSON, raw text otherwise.
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw), nil
		}
		return v, nil
	}
}

// parseErrorBody decodes a non-2xx body best effort: the configured parsing
// first, the raw text as fallback, nil when empty.
func parseErrorBody(resp *Response, typ ResponseType, parser ResponseParser) any {
	data, err := parseResponseData(resp, typ, parser)
	if err == nil {
		return data
	}
	raw := resp.Bytes()
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// errorMessageFrom extracts a human message from a parsed error payload,
// falling back to the configured default.
func errorMessageFrom(errData any, fallback string) string {
	if m, ok := errData.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if s, ok := errData.(string); ok && s != "" {
		return s
	}
	return fallback
}
