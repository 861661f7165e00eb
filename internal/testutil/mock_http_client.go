package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/flexprice/subscriptions/internal/httpclient"
)

// MockHTTPClient implements httpclient.Client. Responses are matched on the
// URL suffix and every request is recorded.
type MockHTTPClient struct {
	mu       sync.RWMutex
	routes   map[string]MockResponse
	requests []*httpclient.Request
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string]MockResponse),
	}
}

// RegisterResponse registers a mock response for a given URL suffix
func (m *MockHTTPClient) RegisterResponse(url string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[url] = resp
}

// Send answers like the real client: error statuses come back as
// *httpclient.Error.
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	resp := MockResponse{StatusCode: http.StatusNotFound, Body: []byte("Not Found")}
	for route, r := range m.routes {
		if strings.HasSuffix(req.URL, route) {
			resp = r
			break
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, httpclient.NewError(resp.StatusCode, resp.Body)
	}
	return &httpclient.Response{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Headers:    resp.Headers,
	}, nil
}

// Requests returns the requests sent so far
func (m *MockHTTPClient) Requests() []*httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*httpclient.Request(nil), m.requests...)
}

// Clear removes all registered responses and recorded requests
func (m *MockHTTPClient) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = make(map[string]MockResponse)
	m.requests = nil
}
