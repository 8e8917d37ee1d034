package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"travel-assistant/internal/domain"
)

const defaultSupabaseTable = "conversations"

// HTTPStatusError reports a PostgREST response other than 201 Created.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("repository: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// SupabaseStore appends turns to a Supabase table through the PostgREST API.
type SupabaseStore struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
}

type SupabaseOption func(*SupabaseStore)

func WithSupabaseTable(table string) SupabaseOption {
	return func(s *SupabaseStore) {
		if t := strings.TrimSpace(table); t != "" {
			s.table = t
		}
	}
}

func WithSupabaseHTTPClient(httpClient *http.Client) SupabaseOption {
	return func(s *SupabaseStore) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

func NewSupabaseStore(baseURL, apiKey string, opts ...SupabaseOption) (*SupabaseStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("repository: supabase url must not be empty")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("repository: supabase key must not be empty")
	}
	s := &SupabaseStore{
		baseURL:    baseURL,
		apiKey:     apiKey,
		table:      defaultSupabaseTable,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SupabaseStore) insertURL() string {
	return s.baseURL + "/rest/v1/" + s.table
}

// AppendTurn inserts one row. Only 201 Created counts as success.
func (s *SupabaseStore) AppendTurn(ctx context.Context, turn domain.Turn) error {
	body, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("repository: marshal turn: %w", err)
	}

	url := s.insertURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("repository: create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("repository: supabase insert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusCreated {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}
	return nil
}
