package callapi

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
)

// dedupeRecord represents one in-flight call shared between callers with the
// same key. The owner settles it exactly once; defer-strategy callers wait on
// it, and a cancel-strategy newcomer aborts it through its cancel handle.
type dedupeRecord struct {
	key    string
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	// result is written once before done closes and read-only afterwards.
	result *CallResult
}

// Wait blocks until the owning call settles or the waiting caller's own
// context ends.
func (r *dedupeRecord) Wait(ctx context.Context) (*CallResult, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// dedupeScope is one key namespace of in-flight records. The mutex makes the
// check-then-insert step atomic, so concurrent duplicate calls cannot both
// become owners.
type dedupeScope struct {
	mu      sync.Mutex
	records map[string]*dedupeRecord
}

func newDedupeScope() *dedupeScope {
	return &dedupeScope{records: make(map[string]*dedupeRecord)}
}

// acquire performs the admission decision for a key. It returns the record to
// use, whether the caller owns it (owners dispatch, non-owners wait), and
// whether an in-flight call was displaced by the cancel strategy.
//
// The new record's context derives from parent; the owner must dispatch under
// it so a later cancel-strategy duplicate can abort the in-flight work.
func (s *dedupeScope) acquire(parent context.Context, key string, strategy DedupeStrategy) (rec *dedupeRecord, owner, displaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok {
		switch strategy {
		case DedupeStrategyDefer:
			return existing, false, false
		case DedupeStrategyCancel:
			existing.cancel(fmt.Errorf("%w: key %q superseded by a newer call", ErrDeduplicated, key))
			displaced = true
		}
	}

	ctx, cancel := context.WithCancelCause(parent)
	rec = &dedupeRecord{
		key:    key,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.records[key] = rec
	return rec, true, displaced
}

// settle publishes the outcome, releases waiters, and removes the record from
// the scope only if it still owns its key. A record displaced by the cancel
// strategy no longer owns the key, so the newcomer's record is left intact.
func (s *dedupeScope) settle(rec *dedupeRecord, result *CallResult) {
	if rec == nil {
		return
	}
	rec.result = result
	close(rec.done)
	rec.cancel(nil)

	s.mu.Lock()
	if s.records[rec.key] == rec {
		delete(s.records, rec.key)
	}
	s.mu.Unlock()
}

// size reports the number of in-flight records, for diagnostics.
func (s *dedupeScope) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// DedupeRegistry maintains named deduplication scopes shared across clients.
// Clients using DedupeScopeGlobal collide on keys within the scope named by
// their DedupeScopeKey. The zero value is not usable; use NewDedupeRegistry.
type DedupeRegistry struct {
	mu     sync.Mutex
	scopes map[string]*dedupeScope
}

// NewDedupeRegistry returns an empty registry. Most callers share the
// package-level registry implied by DedupeScopeGlobal; a private registry
// isolates a group of clients from everyone else.
func NewDedupeRegistry() *DedupeRegistry {
	return &DedupeRegistry{scopes: make(map[string]*dedupeScope)}
}

func (r *DedupeRegistry) scope(name string) *dedupeScope {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scopes[name]
	if !ok {
		s = newDedupeScope()
		r.scopes[name] = s
	}
	return s
}

// globalDedupeRegistry backs clients that opt into the global scope without
// supplying their own registry.
var globalDedupeRegistry = NewDedupeRegistry()

// resolveDedupeKey returns the identity key for a call: the explicit key if
// set, otherwise the configured derivation, otherwise the default derivation.
// An empty key disables deduplication for the call.
func resolveDedupeKey(rc *RequestContext) string {
	o := rc.Options
	if o.DedupeKey != "" {
		return o.DedupeKey
	}
	if o.DedupeKeyFunc != nil {
		return o.DedupeKeyFunc(rc)
	}
	return defaultDedupeKey(rc)
}

// defaultDedupeKey hashes the canonical serialization of method, URL, headers
// and body into a stable key. Header map keys are sorted by the JSON encoder,
// so equal requests always produce equal keys.
func defaultDedupeKey(rc *RequestContext) string {
	req := rc.Request

	var bodyHash string
	if len(req.Body) > 0 {
		sum := sha256.Sum256(req.Body)
		bodyHash = fmt.Sprintf("%x", sum)
	}

	canonical, err := json.Marshal(struct {
		Method  string      `json:"method"`
		URL     string      `json:"url"`
		Headers http.Header `json:"headers,omitempty"`
		Body    string      `json:"body,omitempty"`
	}{req.Method, req.URL, req.Header, bodyHash})
	if err != nil {
		canonical = []byte(req.Method + " " + req.URL)
	}

	h := fnv.New64a()
	h.Write(canonical)
	return fmt.Sprintf("%x", h.Sum64())
}
