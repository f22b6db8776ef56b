package callapi

import (
	"bytes"
	"context"
	"io"
)

// progressReader reports transfer progress as the wrapped reader is consumed.
// The transport reading the request body drives it, so upload events reflect
// actual consumption rather than a synthetic schedule.
type progressReader struct {
	r           io.Reader
	onChunk     func(chunk []byte, transferred int64) error
	transferred int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.transferred += int64(n)
		if cbErr := p.onChunk(b[:n], p.transferred); cbErr != nil {
			return n, cbErr
		}
	}
	return n, err
}

// installUploadObserver arms the request so transports reading through
// BodyReader fire request-stream events per consumed chunk.
func installUploadObserver(ctx context.Context, hooks *hookChain, rc *RequestContext) {
	if !hooks.hasRequestStream() || len(rc.Request.Body) == 0 {
		return
	}
	total := rc.Request.ContentLength()
	rc.Request.onUpload = func(chunk []byte, transferred int64) error {
		ev := StreamEvent{
			Chunk:            append([]byte(nil), chunk...),
			TransferredBytes: transferred,
			TotalBytes:       total,
			Progress:         streamProgress(transferred, total),
		}
		return hooks.fireRequestStream(ctx, &StreamContext{RequestContext: rc, Event: ev})
	}
}

// drainResponse reads the transport-provided body stream to completion,
// firing response-stream events per chunk, then replaces the stream with an
// in-memory reader so the body can be re-read downstream.
func drainResponse(ctx context.Context, hooks *hookChain, rc *RequestContext, resp *Response) error {
	if resp.Body == nil {
		resp.finalize(nil)
		return nil
	}

	if !hooks.hasResponseStream() {
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		resp.finalize(raw)
		return nil
	}

	total := resp.ContentLength()
	var transferred int64
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)

	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			transferred += int64(n)
			buf.Write(chunk[:n])
			ev := StreamEvent{
				Chunk:            append([]byte(nil), chunk[:n]...),
				TransferredBytes: transferred,
				TotalBytes:       total,
				Progress:         streamProgress(transferred, total),
			}
			sc := &StreamContext{RequestContext: rc, Event: ev, Response: resp}
			if hookErr := hooks.fireResponseStream(ctx, sc); hookErr != nil {
				resp.Body.Close()
				return hookErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			resp.Body.Close()
			return err
		}
	}

	resp.Body.Close()
	resp.finalize(buf.Bytes())
	return nil
}
