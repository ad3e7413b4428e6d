// Package tavily implements ports.Searcher on the Tavily search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/clarify/internal/logging"
)

const (
	DefaultEndpoint   = "https://api.tavily.com/search"
	DefaultMaxResults = 3
	DefaultDepth      = "advanced"
)

// ErrMissingAPIKey is returned by Search when no key is configured.
var ErrMissingAPIKey = errors.New("tavily: API key is required")

// Searcher queries Tavily.
type Searcher struct {
	apiKey     string
	endpoint   string
	maxResults int
	depth      string
	client     *http.Client
	logger     *slog.Logger
}

// Option configures the Searcher.
type Option func(*Searcher)

// WithEndpoint overrides DefaultEndpoint, e.g. to point at a test server.
func WithEndpoint(url string) Option {
	return func(s *Searcher) {
		if url != "" {
			s.endpoint = url
		}
	}
}

// WithMaxResults sets max_results. Non-positive values keep DefaultMaxResults.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithDepth sets search_depth ("basic" or "advanced").
func WithDepth(depth string) Option {
	return func(s *Searcher) {
		if depth != "" {
			s.depth = depth
		}
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Searcher) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a searcher. An empty key is accepted; Search then fails and
// the caller is expected to continue without results.
func New(apiKey string, opts ...Option) *Searcher {
	s := &Searcher{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		maxResults: DefaultMaxResults,
		depth:      DefaultDepth,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search returns the content of each result, in the order Tavily ranks them.
func (s *Searcher) Search(ctx context.Context, query string) ([]string, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(searchRequest{
		APIKey:      s.apiKey,
		Query:       query,
		MaxResults:  s.maxResults,
		SearchDepth: s.depth,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	snippets := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		if c := strings.TrimSpace(r.Content); c != "" {
			snippets = append(snippets, c)
		}
	}
	s.logger.Debug("tavily search finished", "results", len(snippets), "duration", time.Since(start))
	return snippets, nil
}
