package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/encore/internal/adapters/catalog"
	"github.com/okian/encore/internal/domain/model"
)

// client is a thin JSON client for the encore HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *client) createEvent(ctx context.Context, name string) (catalog.Event, error) {
	var ev catalog.Event
	err := c.do(ctx, http.MethodPost, "/events", map[string]any{"name": name}, &ev)
	return ev, err
}

func (c *client) submitRequest(ctx context.Context, eventID, title, artist string) (catalog.Request, error) {
	var req catalog.Request
	err := c.do(ctx, http.MethodPost, "/events/"+eventID+"/requests",
		map[string]any{"title": title, "artist": artist}, &req)
	return req, err
}

func (c *client) addToRanking(ctx context.Context, eventID, attendeeID, requestID string) error {
	return c.do(ctx, http.MethodPost, "/events/"+eventID+"/attendees/"+attendeeID+"/ranking",
		map[string]any{"request_id": requestID}, nil)
}

func (c *client) removeFromRanking(ctx context.Context, eventID, attendeeID, requestID string) error {
	return c.do(ctx, http.MethodDelete,
		"/events/"+eventID+"/attendees/"+attendeeID+"/ranking/"+requestID, nil, nil)
}

func (c *client) reorder(ctx context.Context, eventID, attendeeID string, ids []string) error {
	return c.do(ctx, http.MethodPut, "/events/"+eventID+"/attendees/"+attendeeID+"/ranking",
		map[string]any{"request_ids": ids}, nil)
}

func (c *client) refresh(ctx context.Context, eventID string) (*model.RankingView, error) {
	var view model.RankingView
	err := c.do(ctx, http.MethodPost, "/events/"+eventID+"/rankings/refresh", nil, &view)
	return &view, err
}

func (c *client) rankings(ctx context.Context, eventID string) (*model.RankingView, error) {
	var view model.RankingView
	err := c.do(ctx, http.MethodGet, "/events/"+eventID+"/rankings", nil, &view)
	return &view, err
}
