// Package gateway implements the remote backend adapter: a POST-only JSON
// client for the upstream tracking API. Every call carries the logged-in user
// id and receives a {status, data, message} envelope.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"qboard/internal/core"
	"qboard/internal/tracker"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	userID     int64 // logged-in user forwarded on every request
}

var (
	_ tracker.RecordLister  = (*Client)(nil)
	_ tracker.RecentLister  = (*Client)(nil)
	_ tracker.RecordWriter  = (*Client)(nil)
	_ tracker.RecordUpdater = (*Client)(nil)
	_ tracker.RecordDeleter = (*Client)(nil)
	_ tracker.RosterReader  = (*Client)(nil)
)

// New creates a gateway client. The transport's default timeout applies; the
// API specifies no retry or backoff, so a failed call surfaces its error once.
func New(baseURL string, userID int64, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
	}
}

func (c *Client) ListRecords(ctx context.Context, kind core.EntityKind, f tracker.ListFilter) ([]core.Record, error) {
	req := listRequest{LoggedInUserID: c.userID, GroupID: f.Group}
	if !f.Period.IsZero() {
		req.Period = f.Period.String()
	}
	var rows []recordPayload
	if err := c.post(ctx, "/"+string(kind)+"-targets/list", req, &rows); err != nil {
		return nil, fmt.Errorf("list %s records: %w", kind, err)
	}
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord(kind)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed record from backend",
				"kind", kind.String(), "record_id", row.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) ListRecent(ctx context.Context, limit int) ([]core.Record, error) {
	req := recentRequest{LoggedInUserID: c.userID, Limit: limit}
	var rows []recordPayload
	if err := c.post(ctx, "/records/recent", req, &rows); err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		kind := core.EntityKind(row.EntityKind)
		rec, err := row.toRecord(kind)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) AddRecord(ctx context.Context, r core.Record) (int64, error) {
	req := mutationRequest{
		LoggedInUserID: c.userID,
		EntityID:       r.EntityID,
		Period:         r.Period.String(),
		metricsPayload: metricsOf(r.Metrics),
	}
	var created recordPayload
	if err := c.post(ctx, "/"+string(r.Kind)+"-targets/add", req, &created); err != nil {
		return 0, fmt.Errorf("add %s record: %w", r.Kind, err)
	}
	return created.ID, nil
}

func (c *Client) UpdateRecord(ctx context.Context, r core.Record) error {
	req := mutationRequest{
		LoggedInUserID: c.userID,
		RecordID:       r.ID,
		Period:         r.Period.String(),
		metricsPayload: metricsOf(r.Metrics),
	}
	if err := c.post(ctx, "/"+string(r.Kind)+"-targets/update", req, nil); err != nil {
		return fmt.Errorf("update %s record %d: %w", r.Kind, r.ID, err)
	}
	return nil
}

func (c *Client) DeleteRecord(ctx context.Context, kind core.EntityKind, id int64) error {
	req := mutationRequest{LoggedInUserID: c.userID, RecordID: id}
	if err := c.post(ctx, "/"+string(kind)+"-targets/delete", req, nil); err != nil {
		return fmt.Errorf("delete %s record %d: %w", kind, id, err)
	}
	return nil
}

func (c *Client) ListRoster(ctx context.Context, kind core.EntityKind) ([]core.Entity, error) {
	req := listRequest{LoggedInUserID: c.userID}
	var rows []entityPayload
	if err := c.post(ctx, "/"+string(kind)+"s/list", req, &rows); err != nil {
		return nil, fmt.Errorf("list %s roster: %w", kind, err)
	}
	out := make([]core.Entity, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Entity{
			ID:          row.ID,
			Kind:        kind,
			DisplayName: row.DisplayName,
			GroupName:   row.GroupName,
		})
	}
	return out, nil
}

// post issues one envelope round trip. A 409, on the wire or inside the
// envelope, maps to core.ErrConflict so callers can branch on it.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		return core.ErrConflict
	case http.StatusNotFound:
		return core.ErrNotFound
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("backend returned %d without structured body", resp.StatusCode)
		}
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch {
	case env.Status == http.StatusConflict:
		return core.ErrConflict
	case env.Status == http.StatusNotFound:
		return core.ErrNotFound
	case env.Status >= 400:
		return fmt.Errorf("backend error %d: %s", env.Status, env.Message)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode envelope data: %w", err)
		}
	}
	return nil
}
