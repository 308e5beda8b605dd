package airtable

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

type ItemResponse struct {
	Records []Item `json:"records"`
	Offset  string `json:"offset"`
}

type Item map[string]any

type errorResponse struct {
	Error any `json:"error"`
}

// GetItems makes GET request to Airtable API and returns records from all pages.
func (c *Client) GetItems(ctx context.Context, endpoint string, q url.Values) ([]Item, error) {
	var items []Item

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}

	response, err := c.parseItemResponse(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from airtable", zap.Int("records", len(response.Records)), zap.Bool("has_more", response.Offset != ""))

	items = append(items, response.Records...)

	for response.Offset != "" {
		c.logger.Debug("additional request needed", zap.String("offset", response.Offset))

		resp, err = c.request(addOffset(req, response.Offset))
		if err != nil {
			return nil, err
		}

		response, err = c.parseItemResponse(resp)
		if err != nil {
			return nil, err
		}

		items = append(items, response.Records...)
	}

	return items, nil
}

func (c *Client) parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		body = gzipReader
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.Status, data)
	}

	var response ItemResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("decode airtable response: %w", err)
	}

	return &response, nil
}

// statusError describes a non-OK response. Airtable reports errors either as
// {"error": "NOT_FOUND"} or {"error": {"type": ..., "message": ...}}.
func statusError(status string, data []byte) error {
	var payload errorResponse
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == nil {
		return fmt.Errorf("bad status: %s", status)
	}

	switch e := payload.Error.(type) {
	case string:
		return fmt.Errorf("bad status: %s: %s", status, e)
	case map[string]any:
		kind, _ := e["type"].(string)
		message, _ := e["message"].(string)
		detail := strings.TrimSpace(strings.Join([]string{kind, message}, " "))
		if detail == "" {
			return fmt.Errorf("bad status: %s", status)
		}
		return fmt.Errorf("bad status: %s: %s", status, detail)
	default:
		return fmt.Errorf("bad status: %s", status)
	}
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.Redacted()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// addOffset returns a copy of the request pointing at the next page.
func addOffset(req *http.Request, offset string) *http.Request {
	next := req.Clone(req.Context())
	q := next.URL.Query()
	q.Set("offset", offset)
	next.URL.RawQuery = q.Encode()

	return next
}
