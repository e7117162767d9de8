// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/models"
)

// SourceCatalog names the artist-metadata provider in errors, logs, and
// metric labels.
const SourceCatalog = "catalog"

// catalogArtist is the provider's artist document.
type catalogArtist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ImageURL  string   `json:"image_url"`
	Genres    []string `json:"genres"`
	Followers int64    `json:"followers"`
	Verified  bool     `json:"verified"`
}

type catalogSearchResponse struct {
	Artists []catalogArtist `json:"artists"`
}

// CatalogClient talks to the artist catalog provider.
type CatalogClient struct {
	*httpClient
}

// NewCatalogClient builds the catalog client with its own resilience
// pipeline.
func NewCatalogClient(src config.SourceConfig, res config.ResilienceConfig) *CatalogClient {
	return &CatalogClient{httpClient: newHTTPClient(SourceCatalog, src, res)}
}

// Name returns the source label.
func (c *CatalogClient) Name() string { return SourceCatalog }

// Search returns up to pageSize artists matching the discovery query.
// The query is trimmed and must be non-empty; pageSize is bounded by
// MaxPageSize.
func (c *CatalogClient) Search(ctx context.Context, query string, pageSize int) ([]models.RawRecord, error) {
	query, pageSize, err := c.checkSearchInput(query, pageSize)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/artists/search?q=%s&limit=%s",
		c.baseURL, url.QueryEscape(query), strconv.Itoa(pageSize))

	result, err := c.pipeline.Execute(ctx, "search", func(ctx context.Context) (any, error) {
		var resp catalogSearchResponse
		if err := c.getJSON(ctx, "search", reqURL, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*catalogSearchResponse)
	records := make([]models.RawRecord, 0, len(resp.Artists))
	for _, a := range resp.Artists {
		records = append(records, rawFromCatalogArtist(a))
	}
	return records, nil
}

// FetchDetail returns the full record for one catalog artist id.
func (c *CatalogClient) FetchDetail(ctx context.Context, externalID string) (*models.RawRecord, error) {
	externalID, err := c.checkExternalID(externalID)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/artists/%s", c.baseURL, url.PathEscape(externalID))

	result, err := c.pipeline.Execute(ctx, "detail", func(ctx context.Context) (any, error) {
		var a catalogArtist
		if err := c.getJSON(ctx, "detail", reqURL, &a); err != nil {
			return nil, err
		}
		return &a, nil
	})
	if err != nil {
		return nil, err
	}

	record := rawFromCatalogArtist(*result.(*catalogArtist))
	return &record, nil
}

func rawFromCatalogArtist(a catalogArtist) models.RawRecord {
	return models.RawRecord{
		Kind:       models.RawArtist,
		Source:     SourceCatalog,
		ExternalID: a.ID,
		Name:       a.Name,
		ImageURL:   a.ImageURL,
		Genres:     a.Genres,
		Followers:  a.Followers,
		Verified:   a.Verified,
	}
}
