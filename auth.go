package callapi

import (
	"encoding/base64"
	"net/http"
)

// Auth supplies an Authorization header value for a call. Implementations
// cover the common schemes; anything else can implement the interface
// directly or use CustomAuth.
type Auth interface {
	HeaderValue() (string, error)
}

// BearerAuth sends "Bearer <token>".
type BearerAuth string

func (a BearerAuth) HeaderValue() (string, error) {
	return "Bearer " + string(a), nil
}

// TokenAuth sends "Token <token>".
type TokenAuth string

func (a TokenAuth) HeaderValue() (string, error) {
	return "Token " + string(a), nil
}

// BasicAuth sends an RFC 7617 basic credential.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) HeaderValue() (string, error) {
	cred := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	return "Basic " + cred, nil
}

// CustomAuth sends "<Scheme> <Value>", or just the value when Scheme is empty.
type CustomAuth struct {
	Scheme string
	Value  string
}

func (a CustomAuth) HeaderValue() (string, error) {
	if a.Scheme == "" {
		return a.Value, nil
	}
	return a.Scheme + " " + a.Value, nil
}

// AuthFunc resolves the credential lazily at dispatch time, for tokens that
// rotate between calls.
type AuthFunc func() (Auth, error)

func (f AuthFunc) HeaderValue() (string, error) {
	a, err := f()
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", nil
	}
	return a.HeaderValue()
}

// applyAuth sets the Authorization header unless the caller already did.
func applyAuth(h http.Header, a Auth) error {
	if a == nil || h.Get("Authorization") != "" {
		return nil
	}
	v, err := a.HeaderValue()
	if err != nil {
		return err
	}
	if v != "" {
		h.Set("Authorization", v)
	}
	return nil
}
