package callapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// HTTPTransport adapts an *http.Client into a Transport. Passing nil uses a
// zero-value http.Client.
func HTTPTransport(hc *http.Client) Transport {
	if hc == nil {
		hc = &http.Client{}
	}
	return func(ctx context.Context, req *Request) (*Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.BodyReader())
		if err != nil {
			return nil, err
		}
		if req.Header != nil {
			httpReq.Header = req.Header.Clone()
		}
		if len(req.Body) > 0 {
			httpReq.ContentLength = req.ContentLength()
			body := req.Body
			httpReq.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
		}

		resp, err := hc.Do(httpReq)
		if err != nil {
			return nil, err
		}
		return &Response{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       resp.Body,
		}, nil
	}
}
