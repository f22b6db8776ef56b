package callapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTransportRoundTrip(t *testing.T) {
	var gotMethod, gotPath, gotHeader, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Trace")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)

		w.Header().Set("X-Served-By", "test")
		w.WriteHeader(201)
		w.Write([]byte(`{"created":true}`))
	}))
	defer server.Close()

	transport := HTTPTransport(nil)
	header := http.Header{}
	header.Set("X-Trace", "abc-123")

	resp, err := transport(context.Background(), &Request{
		Method: "POST",
		URL:    server.URL + "/items",
		Header: header,
		Body:   []byte(`{"name":"Ada"}`),
	})
	if err != nil {
		t.Fatalf("transport failed: %v", err)
	}

	if gotMethod != "POST" {
		t.Errorf("Expected POST on the wire, got %s", gotMethod)
	}
	if gotPath != "/items" {
		t.Errorf("Expected /items, got %s", gotPath)
	}
	if gotHeader != "abc-123" {
		t.Errorf("Expected X-Trace forwarded, got %q", gotHeader)
	}
	if gotBody != `{"name":"Ada"}` {
		t.Errorf("Expected body forwarded, got %q", gotBody)
	}

	if resp.StatusCode != 201 {
		t.Errorf("Expected status 201, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Served-By") != "test" {
		t.Error("Expected response headers mapped")
	}
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != `{"created":true}` {
		t.Errorf("Expected response body mapped, got %q", raw)
	}
}

func TestHTTPTransportContentLength(t *testing.T) {
	var gotLength int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
	}))
	defer server.Close()

	transport := HTTPTransport(server.Client())
	_, err := transport(context.Background(), &Request{
		Method: "PUT",
		URL:    server.URL,
		Body:   []byte("0123456789"),
	})
	if err != nil {
		t.Fatalf("transport failed: %v", err)
	}
	if gotLength != 10 {
		t.Errorf("Expected Content-Length 10, got %d", gotLength)
	}
}

func TestHTTPTransportNoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			t.Errorf("Expected no request body, got length %d", r.ContentLength)
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	transport := HTTPTransport(nil)
	resp, err := transport(context.Background(), &Request{Method: "GET", URL: server.URL})
	if err != nil {
		t.Fatalf("transport failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != "ok" {
		t.Errorf("Expected ok, got %q", raw)
	}
}

func TestHTTPTransportHeaderIsolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	header := http.Header{}
	header.Set("X-Keep", "original")

	transport := HTTPTransport(nil)
	if _, err := transport(context.Background(), &Request{Method: "GET", URL: server.URL, Header: header}); err != nil {
		t.Fatalf("transport failed: %v", err)
	}

	// The request header map must not be mutated by the round trip.
	if len(header) != 1 || header.Get("X-Keep") != "original" {
		t.Errorf("Expected caller header untouched, got %v", header)
	}
}

func TestHTTPTransportContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	transport := HTTPTransport(nil)
	_, err := transport(ctx, &Request{Method: "GET", URL: server.URL})
	if err == nil {
		t.Fatal("Expected an error for the canceled request")
	}
	if !strings.Contains(err.Error(), "deadline") && !strings.Contains(err.Error(), "canceled") {
		t.Errorf("Expected a deadline or cancellation error, got %v", err)
	}
}

func TestHTTPTransportInvalidURL(t *testing.T) {
	transport := HTTPTransport(nil)
	_, err := transport(context.Background(), &Request{Method: "GET", URL: "http://[::1]:namedport"})
	if err == nil {
		t.Fatal("Expected an error for a malformed URL")
	}
}
