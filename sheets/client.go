// Package sheets talks to the spreadsheet-backed statistic service: a
// single script URL that answers reads on GET and saves or deletes on POST.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

// The script rejects preflighted requests, so POST bodies go as plain text.
const postContentType = "text/plain;charset=utf-8"

// maxBody caps the bytes read from any response.
const maxBody = 32 << 20

// Client is a store.Store backed by the spreadsheet script.
type Client struct {
	baseURL string
	client  *http.Client
}

// New returns a client for scriptURL. Each call is bounded by timeout.
func New(scriptURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: scriptURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewWithClient returns a client using hc for transport.
func NewWithClient(scriptURL string, hc *http.Client) *Client {
	return &Client{baseURL: scriptURL, client: hc}
}

type saveRequest struct {
	Action   string    `json:"action"`
	FormData stats.Row `json:"formData"`
}

type deleteRequest struct {
	Action   string `json:"action"`
	Category string `json:"category"`
	RowID    string `json:"rowId"`
}

type reply struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Read fetches every row of category, keeping each row's key order.
func (c *Client) Read(ctx context.Context, category string) ([]stats.Row, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, store.FetchError("read", err)
	}
	q := u.Query()
	q.Set("action", "read")
	q.Set("category", category)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, store.FetchError("read", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, store.FetchError("read", err)
	}

	// A failing script answers with an object instead of the row array.
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var r reply
		if err := json.Unmarshal(trimmed, &r); err == nil && r.Error != "" {
			return nil, store.FetchError("read", fmt.Errorf("script error: %s", r.Error))
		}
	}

	rows, err := stats.DecodeRows(bytes.NewReader(body))
	if err != nil {
		return nil, store.FetchError("read", err)
	}
	return rows, nil
}

// Save posts rec and returns the script's confirmation message.
func (c *Client) Save(ctx context.Context, rec stats.Record) (string, error) {
	return c.post(ctx, "save", saveRequest{Action: "save", FormData: rec.FormData()})
}

// Delete removes one row and returns the script's confirmation message.
func (c *Client) Delete(ctx context.Context, category, rowID string) (string, error) {
	return c.post(ctx, "delete", deleteRequest{Action: "delete", Category: category, RowID: rowID})
}

func (c *Client) post(ctx context.Context, op string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", store.FetchError(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return "", store.FetchError(op, err)
	}
	req.Header.Set("Content-Type", postContentType)

	body, err := c.do(req)
	if err != nil {
		return "", store.FetchError(op, err)
	}
	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return "", store.FetchError(op, fmt.Errorf("decode reply: %w", err))
	}
	if r.Error != "" {
		return "", store.FetchError(op, fmt.Errorf("script error: %s", r.Error))
	}
	return r.Message, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return body, nil
}
