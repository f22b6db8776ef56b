package callapi

import (
	"encoding/json"
	"io"
	"net/url"
)

// defaultBodySerializer marshals structured bodies as JSON.
func defaultBodySerializer(body any) ([]byte, string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// serializeBody resolves the wire form of a call body. Byte slices, strings,
// readers and form values pass through with their natural content types;
// everything else goes through the configured serializer (JSON by default).
// The returned content type is only applied when the caller has not set one.
func serializeBody(body any, serializer BodySerializer) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return v, "application/json", nil
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), "text/plain; charset=utf-8", nil
	case url.Values:
		return []byte(v.Encode()), "application/x-www-form-urlencoded", nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, "", err
		}
		return data, "", nil
	default:
		if serializer == nil {
			serializer = defaultBodySerializer
		}
		return serializer(v)
	}
}
