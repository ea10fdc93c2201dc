package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://api.calendar.example.com/v1"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path, token string, query url.Values, payload any) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ListEvents fetches one page of events for a calendar, either by
// continuation cursor or by time window.
func (c *Client) ListEvents(ctx context.Context, token, calendarID string, q ListEventsQuery) (*ListEventsResponse, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("calendar_id is required")
	}
	if q.Cursor != "" && (q.TimeMin != nil || q.TimeMax != nil) {
		return nil, fmt.Errorf("cursor and time window are mutually exclusive")
	}
	query := url.Values{}
	if q.Cursor != "" {
		query.Set("cursor", q.Cursor)
	} else {
		if q.TimeMin != nil {
			query.Set("time_min", q.TimeMin.UTC().Format(time.RFC3339))
		}
		if q.TimeMax != nil {
			query.Set("time_max", q.TimeMax.UTC().Format(time.RFC3339))
		}
		if q.OrderBy != "" {
			query.Set("order_by", q.OrderBy)
		}
	}
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(calendarID))
	body, err := c.doRequest(ctx, http.MethodGet, path, token, query, nil)
	if err != nil {
		return nil, err
	}
	var out ListEventsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return &out, nil
}

// CreateEvent creates a single event and returns the remote record,
// including its assigned id and any generated meeting link.
func (c *Client) CreateEvent(ctx context.Context, token, calendarID string, req CreateEventRequest) (*Event, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("calendar_id is required")
	}
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(calendarID))
	body, err := c.doRequest(ctx, http.MethodPost, path, token, nil, req)
	if err != nil {
		return nil, err
	}
	var out Event
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &out, nil
}

// GetEvent fetches a single event by its remote id. A missing event
// surfaces as an *APIError with status 404 or 410.
func (c *Client) GetEvent(ctx context.Context, token, calendarID, eventID string) (*Event, error) {
	if calendarID == "" || eventID == "" {
		return nil, fmt.Errorf("calendar_id and event_id are required")
	}
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(eventID))
	body, err := c.doRequest(ctx, http.MethodGet, path, token, nil, nil)
	if err != nil {
		return nil, err
	}
	var out Event
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &out, nil
}
