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

// SourceEvents names the ticketing provider in errors, logs, and metric
// labels.
const SourceEvents = "events"

// eventVenue is the venue fragment embedded in an event document.
type eventVenue struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Capacity int    `json:"capacity"`
}

// eventRecord is the provider's event document. Dates stay strings here;
// the reconciler parses them so one malformed date fails one record.
type eventRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Attraction struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"attraction"`
	Date      string      `json:"date"`
	StartTime string      `json:"start_time"`
	Status    string      `json:"status"`
	TicketURL string      `json:"ticket_url"`
	Venue     *eventVenue `json:"venue"`
}

type eventSearchResponse struct {
	Events []eventRecord `json:"events"`
}

// EventClient talks to the ticketing provider.
type EventClient struct {
	*httpClient
}

// NewEventClient builds the event client with its own resilience pipeline.
func NewEventClient(src config.SourceConfig, res config.ResilienceConfig) *EventClient {
	return &EventClient{httpClient: newHTTPClient(SourceEvents, src, res)}
}

// Name returns the source label.
func (c *EventClient) Name() string { return SourceEvents }

// Search returns up to pageSize events matching the discovery query.
// The query is trimmed and must be non-empty; pageSize is bounded by
// MaxPageSize.
func (c *EventClient) Search(ctx context.Context, query string, pageSize int) ([]models.RawRecord, error) {
	query, pageSize, err := c.checkSearchInput(query, pageSize)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/events/search?q=%s&limit=%s",
		c.baseURL, url.QueryEscape(query), strconv.Itoa(pageSize))

	result, err := c.pipeline.Execute(ctx, "search", func(ctx context.Context) (any, error) {
		var resp eventSearchResponse
		if err := c.getJSON(ctx, "search", reqURL, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*eventSearchResponse)
	records := make([]models.RawRecord, 0, len(resp.Events))
	for _, e := range resp.Events {
		records = append(records, rawFromEvent(e))
	}
	return records, nil
}

// FetchDetail returns the full record for one event id.
func (c *EventClient) FetchDetail(ctx context.Context, externalID string) (*models.RawRecord, error) {
	externalID, err := c.checkExternalID(externalID)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/events/%s", c.baseURL, url.PathEscape(externalID))

	result, err := c.pipeline.Execute(ctx, "detail", func(ctx context.Context) (any, error) {
		var e eventRecord
		if err := c.getJSON(ctx, "detail", reqURL, &e); err != nil {
			return nil, err
		}
		return &e, nil
	})
	if err != nil {
		return nil, err
	}

	record := rawFromEvent(*result.(*eventRecord))
	return &record, nil
}

func rawFromEvent(e eventRecord) models.RawRecord {
	record := models.RawRecord{
		Kind:             models.RawEvent,
		Source:           SourceEvents,
		ExternalID:       e.ID,
		Name:             e.Name,
		ArtistName:       e.Attraction.Name,
		ArtistExternalID: e.Attraction.ID,
		Date:             e.Date,
		StartTime:        e.StartTime,
		Status:           e.Status,
		TicketURL:        e.TicketURL,
	}
	if e.Venue != nil {
		record.Venue = &models.RawVenue{
			ExternalID: e.Venue.ID,
			Name:       e.Venue.Name,
			City:       e.Venue.City,
			Region:     e.Venue.Region,
			Country:    e.Venue.Country,
			Capacity:   e.Venue.Capacity,
		}
	}
	return record
}
