// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package source implements the HTTP clients for the two external providers:
// the catalog source (artist metadata) and the event source (shows and
// venues). Every outbound call goes through the shared resilience pipeline;
// responses are normalized into models.RawRecord before the reconciler sees
// them.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/resilience"
)

// maxErrorBodySize bounds how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 64 * 1024

// MaxPageSize caps how many records one search may request from a
// provider, matching the cap config enforces on sync.page_size.
const MaxPageSize = 100

// Client is the surface the sync orchestrator drives. Search pages through
// records matching a discovery query; FetchDetail fills in the full record
// for one external id.
type Client interface {
	Name() string
	Search(ctx context.Context, query string, pageSize int) ([]models.RawRecord, error)
	FetchDetail(ctx context.Context, externalID string) (*models.RawRecord, error)
	Breaker() *resilience.Breaker
}

// httpClient is the shared transport under both concrete clients.
type httpClient struct {
	source   string
	baseURL  string
	apiKey   string
	client   *http.Client
	pipeline *resilience.Pipeline
}

func newHTTPClient(source string, src config.SourceConfig, res config.ResilienceConfig) *httpClient {
	return &httpClient{
		source:   source,
		baseURL:  src.BaseURL,
		apiKey:   src.APIKey,
		client:   &http.Client{Timeout: src.Timeout},
		pipeline: resilience.NewPipeline(source, src, res),
	}
}

// checkSearchInput trims the discovery query and bounds the page size
// before anything goes on the wire. Bad caller input is a permanent
// error: retrying cannot fix it, and it must not trip the breaker.
func (c *httpClient) checkSearchInput(query string, pageSize int) (string, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", 0, resilience.Permanent(c.source, "search", errors.New("empty search query"))
	}
	if pageSize < 1 {
		return "", 0, resilience.Permanent(c.source, "search", fmt.Errorf("page size must be >= 1, got %d", pageSize))
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return query, pageSize, nil
}

// checkExternalID trims the id for a detail fetch and rejects empty ones.
func (c *httpClient) checkExternalID(externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", resilience.Permanent(c.source, "detail", errors.New("empty external id"))
	}
	return externalID, nil
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// getJSON performs one authenticated GET and decodes the body into out.
// Non-2xx statuses become classified SourceErrors so the pipeline knows
// whether to retry.
func (c *httpClient) getJSON(ctx context.Context, op, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return resilience.Permanent(c.source, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return resilience.Transient(c.source, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := readBodyForError(resp.Body)
		return resilience.FromStatus(c.source, op, resp.StatusCode,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resilience.Permanent(c.source, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Breaker exposes the pipeline's breaker for cycle grading.
func (c *httpClient) Breaker() *resilience.Breaker {
	return c.pipeline.Breaker()
}
