package callapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestProgressReaderCountsBytes(t *testing.T) {
	payload := strings.Repeat("x", 100)
	var chunks int
	var last int64

	pr := &progressReader{
		r: strings.NewReader(payload),
		onChunk: func(chunk []byte, transferred int64) error {
			chunks++
			last = transferred
			return nil
		},
	}

	out, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(out) != 100 {
		t.Errorf("Expected 100 bytes, got %d", len(out))
	}
	if last != 100 {
		t.Errorf("Expected final transferred=100, got %d", last)
	}
	if chunks == 0 {
		t.Error("Expected at least one chunk callback")
	}
}

func TestProgressReaderCallbackError(t *testing.T) {
	abort := errors.New("transfer aborted")
	pr := &progressReader{
		r:       strings.NewReader("data"),
		onChunk: func(chunk []byte, transferred int64) error { return abort },
	}

	_, err := io.ReadAll(pr)
	if !errors.Is(err, abort) {
		t.Errorf("Expected the callback error surfaced, got %v", err)
	}
}

func TestInstallUploadObserverSkipsWithoutHandlers(t *testing.T) {
	hooks := composeHooks(nil, nil, HooksExecutionModeSequential, HooksRegistrationOrderPluginsFirst)
	rc := &RequestContext{Request: &Request{Body: []byte("data")}}

	installUploadObserver(context.Background(), hooks, rc)
	if rc.Request.onUpload != nil {
		t.Error("No handlers registered, observer should not be armed")
	}
}

func TestInstallUploadObserverFiresEvents(t *testing.T) {
	var events []StreamEvent
	hooks := composeHooks(nil, []Hooks{{
		OnRequestStream: func(ctx context.Context, sc *StreamContext) error {
			events = append(events, sc.Event)
			if sc.Response != nil {
				t.Error("Upload events should carry no response")
			}
			return nil
		},
	}}, HooksExecutionModeSequential, HooksRegistrationOrderPluginsFirst)

	rc := &RequestContext{Request: &Request{Body: []byte("0123456789")}}
	installUploadObserver(context.Background(), hooks, rc)
	if rc.Request.onUpload == nil {
		t.Fatal("Observer should be armed")
	}

	io.ReadAll(rc.Request.BodyReader())

	if len(events) == 0 {
		t.Fatal("Expected upload events")
	}
	final := events[len(events)-1]
	if final.TransferredBytes != 10 {
		t.Errorf("Expected 10 bytes transferred, got %d", final.TransferredBytes)
	}
	if final.TotalBytes != 10 {
		t.Errorf("Expected total 10, got %d", final.TotalBytes)
	}
	if final.Progress != 1 {
		t.Errorf("Expected progress 1, got %v", final.Progress)
	}
}

func TestDrainResponseWithoutHandlers(t *testing.T) {
	hooks := composeHooks(nil, nil, HooksExecutionModeSequential, HooksRegistrationOrderPluginsFirst)
	resp := &Response{Body: io.NopCloser(strings.NewReader("body"))}

	if err := drainResponse(context.Background(), hooks, &RequestContext{}, resp); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if string(resp.Bytes()) != "body" {
		t.Errorf("Expected drained body, got %q", resp.Bytes())
	}
}

func TestDrainResponseFiresChunkEvents(t *testing.T) {
	payload := strings.Repeat("a", 40*1024)
	var events []StreamEvent
	hooks := composeHooks(nil, []Hooks{{
		OnResponseStream: func(ctx context.Context, sc *StreamContext) error {
			events = append(events, sc.Event)
			return nil
		},
	}}, HooksExecutionModeSequential, HooksRegistrationOrderPluginsFirst)

	resp := jsonResponse(200, payload)
	if err := drainResponse(context.Background(), hooks, &RequestContext{}, resp); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	// 40KiB drains in two 32KiB-buffer reads.
	if len(events) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(events))
	}
	final := events[len(events)-1]
	if final.TransferredBytes != int64(len(payload)) {
		t.Errorf("Expected %d bytes, got %d", len(payload), final.TransferredBytes)
	}
	if final.Progress != 1 {
		t.Errorf("Expected progress 1, got %v", final.Progress)
	}
	if string(resp.Bytes()) != payload {
		t.Error("Drained body should match the stream")
	}
}

func TestDrainResponseUnknownTotal(t *testing.T) {
	var final StreamEvent
	hooks := composeHooks(nil, []Hooks{{
		OnResponseStream: func(ctx context.Context, sc *StreamContext) error {
			final = sc.Event
			return nil
		},
	}}, HooksExecutionModeSequential, HooksRegistrationOrderPluginsFirst)

	// No Content-Length header: total and progress are unknown.
	resp := &Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewReader([]byte("chunk"))),
	}
	drainResponse(context.Background(), hooks, &RequestContext{}, resp)

	if final.TotalBytes != -1 {
		t.Errorf("Expected unknown total as -1, got %d", final.TotalBytes)
	}
	if final.Progress != 0 {
		t.Errorf("Expected progress 0 for unknown totals, got %v", final.Progress)
	}
}

func TestDrainResponseHookErrorAborts(t *testing.T) {
	abort := errors.New("stream rejected")
	hooks := composeHooks(nil, []Hooks{{
		OnResponseStream: func(ctx context.Context, sc *StreamContext) error { return abort },
	}}, HooksExecutionModeSequential, HooksRegistrationOrderPluginsFirst)

	resp := &Response{Body: io.NopCloser(strings.NewReader("data"))}
	err := drainResponse(context.Background(), hooks, &RequestContext{}, resp)
	if !errors.Is(err, abort) {
		t.Errorf("Expected the hook error surfaced, got %v", err)
	}
}

func TestDrainResponseNilBody(t *testing.T) {
	hooks := composeHooks(nil, nil, HooksExecutionModeSequential, HooksRegistrationOrderPluginsFirst)
	resp := &Response{StatusCode: 204}

	if err := drainResponse(context.Background(), hooks, &RequestContext{}, resp); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if len(resp.Bytes()) != 0 {
		t.Error("Expected an empty drained body")
	}
}

func TestStreamProgress(t *testing.T) {
	tests := []struct {
		transferred, total int64
		want               float64
	}{
		{0, 100, 0},
		{50, 100, 0.5},
		{100, 100, 1},
		{150, 100, 1},
		{10, -1, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := streamProgress(tt.transferred, tt.total); got != tt.want {
			t.Errorf("streamProgress(%d, %d): expected %v, got %v", tt.transferred, tt.total, got, tt.want)
		}
	}
}
