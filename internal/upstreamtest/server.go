// Package upstreamtest provides a scriptable fake of the upstream data API
// for tests.
package upstreamtest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Server serves canned JSON bodies by escaped request path and records
// every request it receives
type Server struct {
	server       *httptest.Server
	requestCount int32

	mu       sync.RWMutex
	routes   map[string]string
	errors   map[string]int
	delays   map[string]time.Duration
	slow     map[string]time.Duration
	paths    []string
	spans    []span
	seq      int
	keys     []string
	keyName  string
	fallback int
}

// New starts a fake upstream. Unknown paths answer 404.
func New() *Server {
	s := &Server{
		routes:   make(map[string]string),
		errors:   make(map[string]int),
		delays:   make(map[string]time.Duration),
		slow:     make(map[string]time.Duration),
		keyName:  "X-RapidAPI-Key",
		fallback: http.StatusNotFound,
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL is the server's base URL
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// Handle serves body for path, given in escaped form such as
// "/userposts/1/50/%7Bend_cursor%7D"
func (s *Server) Handle(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = body
}

// SetError answers path with an empty body and status code
func (s *Server) SetError(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[path] = code
}

// SetDelay delays responses for path
func (s *Server) SetDelay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = d
}

// SetEndpointDelay delays every response whose first path segment is
// endpoint. A delay set for an exact path takes precedence.
func (s *Server) SetEndpointDelay(endpoint string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slow[endpoint] = d
}

// SetFallback sets the status returned for unknown paths
func (s *Server) SetFallback(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = code
}

// RequestCount is the number of requests served so far
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// Paths returns every requested path in arrival order
func (s *Server) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.paths...)
}

// EndpointCount returns how many requests hit paths whose first segment is
// endpoint
func (s *Server) EndpointCount(endpoint string) int {
	n := 0
	for _, p := range s.Paths() {
		if firstSegment(p) == endpoint {
			n++
		}
	}
	return n
}

// Endpoints returns the distinct first path segments requested, sorted
func (s *Server) Endpoints() []string {
	set := make(map[string]struct{})
	for _, p := range s.Paths() {
		set[firstSegment(p)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// span is the lifetime of one request, ordered by a shared sequence so that
// overlap does not depend on clock resolution
type span struct {
	endpoint   string
	start, end int
}

// PeakInFlight returns the largest number of requests to the given
// endpoints that were being served at the same moment. With no endpoints
// every request counts.
func (s *Server) PeakInFlight(endpoints ...string) int {
	want := make(map[string]bool, len(endpoints))
	for _, e := range endpoints {
		want[e] = true
	}

	s.mu.RLock()
	events := make(map[int]int)
	for _, sp := range s.spans {
		if len(want) > 0 && !want[sp.endpoint] {
			continue
		}
		events[sp.start] = 1
		if sp.end > 0 {
			events[sp.end] = -1
		}
	}
	s.mu.RUnlock()

	order := make([]int, 0, len(events))
	for seq := range events {
		order = append(order, seq)
	}
	sort.Ints(order)

	current, peak := 0, 0
	for _, seq := range order {
		current += events[seq]
		if current > peak {
			peak = current
		}
	}
	return peak
}

// Keys returns the credential sent with each request in arrival order
func (s *Server) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keys...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)
	path := r.URL.EscapedPath()

	endpoint := firstSegment(path)

	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.keys = append(s.keys, r.Header.Get(s.keyName))
	s.seq++
	idx := len(s.spans)
	s.spans = append(s.spans, span{endpoint: endpoint, start: s.seq})
	delay, exact := s.delays[path]
	if !exact {
		delay = s.slow[endpoint]
	}
	code, failing := s.errors[path]
	body, ok := s.routes[path]
	fallback := s.fallback
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.seq++
		s.spans[idx].end = s.seq
		s.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if failing {
		w.WriteHeader(code)
		return
	}
	if !ok {
		w.WriteHeader(fallback)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
