package callapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }
func (failingReader) Close() error               { return nil }

func TestResponseOK(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		r := &Response{StatusCode: tt.status}
		if r.OK() != tt.want {
			t.Errorf("Status %d: expected OK()=%v", tt.status, tt.want)
		}
	}
}

func TestResponseContentLength(t *testing.T) {
	r := &Response{Header: http.Header{"Content-Length": {"42"}}}
	if r.ContentLength() != 42 {
		t.Errorf("Expected 42, got %d", r.ContentLength())
	}

	r = &Response{Header: http.Header{}}
	if r.ContentLength() != -1 {
		t.Errorf("Expected -1 without a header, got %d", r.ContentLength())
	}

	r = &Response{Header: http.Header{"Content-Length": {"garbage"}}}
	if r.ContentLength() != -1 {
		t.Errorf("Expected -1 for malformed header, got %d", r.ContentLength())
	}

	r = &Response{}
	if r.ContentLength() != -1 {
		t.Errorf("Expected -1 with nil header, got %d", r.ContentLength())
	}
}

func TestResponseBytesDrainsOnce(t *testing.T) {
	r := &Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader("payload")),
	}

	if got := r.Bytes(); string(got) != "payload" {
		t.Errorf("Expected payload, got %q", got)
	}
	// Second read comes from the retained buffer.
	if got := r.Bytes(); string(got) != "payload" {
		t.Errorf("Expected retained payload, got %q", got)
	}
	// The body stream is restored for direct readers.
	restored, _ := io.ReadAll(r.Body)
	if string(restored) != "payload" {
		t.Errorf("Expected restored stream, got %q", restored)
	}
}

func TestResponseJSON(t *testing.T) {
	r := &Response{Body: io.NopCloser(strings.NewReader(`{"id":9}`))}
	var out struct {
		ID int `json:"id"`
	}
	if err := r.JSON(&out); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if out.ID != 9 {
		t.Errorf("Expected 9, got %d", out.ID)
	}
}

func TestResponseDrainError(t *testing.T) {
	r := &Response{Body: failingReader{}}
	if err := r.JSON(&struct{}{}); err == nil {
		t.Error("Expected the read failure surfaced")
	}
}

func TestParseResponseDataModes(t *testing.T) {
	build := func(body string) *Response {
		r := &Response{}
		r.finalize([]byte(body))
		return r
	}

	tests := []struct {
		name string
		typ  ResponseType
		body string
		want any
	}{
		{"auto json object", ResponseTypeAuto, `{"a":1}`, map[string]any{"a": float64(1)}},
		{"auto falls back to text", ResponseTypeAuto, "not json", "not json"},
		{"auto empty is nil", ResponseTypeAuto, "", nil},
		{"json mode", ResponseTypeJSON, `[1,2]`, []any{float64(1), float64(2)}},
		{"text mode keeps json raw", ResponseTypeText, `{"a":1}`, `{"a":1}`},
		{"bytes mode", ResponseTypeBytes, "raw", []byte("raw")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponseData(build(tt.body), tt.typ, nil)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			switch want := tt.want.(type) {
			case map[string]any:
				m, ok := got.(map[string]any)
				if !ok || m["a"] != want["a"] {
					t.Errorf("Expected %v, got %v", want, got)
				}
			case []any:
				s, ok := got.([]any)
				if !ok || len(s) != len(want) {
					t.Errorf("Expected %v, got %v", want, got)
				}
			case []byte:
				b, ok := got.([]byte)
				if !ok || string(b) != string(want) {
					t.Errorf("Expected %s, got %v", want, got)
				}
			default:
				if got != tt.want {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestParseResponseDataStrictJSONFailure(t *testing.T) {
	r := &Response{}
	r.finalize([]byte("not json"))

	if _, err := parseResponseData(r, ResponseTypeJSON, nil); err == nil {
		t.Error("Strict JSON mode should reject malformed bodies")
	}
}

func TestParseResponseDataCustomParser(t *testing.T) {
	r := &Response{}
	r.finalize([]byte("a,b,c"))

	parser := func(body []byte) (any, error) {
		return strings.Split(string(body), ","), nil
	}
	got, err := parseResponseData(r, ResponseTypeJSON, parser)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	parts := got.([]string)
	if len(parts) != 3 || parts[0] != "a" {
		t.Errorf("Expected parser output, got %v", got)
	}
}

func TestParseErrorBodyLenient(t *testing.T) {
	r := &Response{}
	r.finalize([]byte(`{"message":"nope"}`))
	data := parseErrorBody(r, ResponseTypeJSON, nil)
	if m, ok := data.(map[string]any); !ok || m["message"] != "nope" {
		t.Errorf("Expected parsed error payload, got %v", data)
	}

	// Malformed JSON under strict mode degrades to the raw text.
	r = &Response{}
	r.finalize([]byte("<html>bad gateway</html>"))
	data = parseErrorBody(r, ResponseTypeJSON, nil)
	if data != "<html>bad gateway</html>" {
		t.Errorf("Expected raw text fallback, got %v", data)
	}

	r = &Response{}
	r.finalize(nil)
	if data := parseErrorBody(r, ResponseTypeJSON, nil); data != nil {
		t.Errorf("Expected nil for empty bodies, got %v", data)
	}
}

func TestErrorMessageFrom(t *testing.T) {
	fallback := "default message"

	if got := errorMessageFrom(map[string]any{"message": "explicit"}, fallback); got != "explicit" {
		t.Errorf("Expected explicit message, got %q", got)
	}
	if got := errorMessageFrom(map[string]any{"error": "other key"}, fallback); got != fallback {
		t.Errorf("Expected fallback for unknown shape, got %q", got)
	}
	if got := errorMessageFrom("plain error text", fallback); got != "plain error text" {
		t.Errorf("Expected string payload used, got %q", got)
	}
	if got := errorMessageFrom(nil, fallback); got != fallback {
		t.Errorf("Expected fallback for nil payload, got %q", got)
	}
	if got := errorMessageFrom(map[string]any{"message": ""}, fallback); got != fallback {
		t.Errorf("Expected fallback for empty message, got %q", got)
	}
}
