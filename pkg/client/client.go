// Package client provides a Go client for the jsonkv HTTP API.
//
// It covers the record operations (Get, Put, PutRaw, Delete, Keys) and the
// health endpoint. The client handles HTTP communication, JSON encoding and
// standardized error handling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// --- Custom Errors ---

// APIError represents an error returned by the jsonkv API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// --- JSON Response Structs ---

type kvResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type keysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// Health is the server status reported by /healthz.
type Health struct {
	Status     string `json:"status"`
	Keys       int    `json:"keys"`
	StoreBytes int64  `json:"store_bytes"`
}

// --- Client ---

// Client is the Go client for a jsonkv server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the server at baseURL (e.g. "http://localhost:3000").
// token is sent as a bearer token when non-empty.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// request executes a call against the API and returns the response body.
// Status codes >= 400 are turned into *APIError.
func (c *Client) request(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

func keyPath(key string) string {
	return "/kv/" + url.PathEscape(key)
}

// --- Record Methods ---

// Get returns the JSON value stored under key.
func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	respBody, err := c.request(ctx, http.MethodGet, keyPath(key), nil)
	if err != nil {
		return nil, err
	}
	var resp kvResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Value, nil
}

// GetInto decodes the value stored under key into v.
func (c *Client) GetInto(ctx context.Context, key string, v any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Put stores value, marshaled to JSON, under key.
func (c *Client) Put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.PutRaw(ctx, key, data)
}

// PutRaw stores already serialized JSON text under key. The server rejects
// text that is not valid JSON with a 400.
func (c *Client) PutRaw(ctx context.Context, key string, raw []byte) error {
	if raw == nil {
		raw = []byte{}
	}
	_, err := c.request(ctx, http.MethodPut, keyPath(key), raw)
	return err
}

// Delete removes key. Deleting a missing key returns a 404 APIError.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.request(ctx, http.MethodDelete, keyPath(key), nil)
	return err
}

// Keys lists stored keys with the given prefix in ascending order.
func (c *Client) Keys(ctx context.Context, prefix string) ([]string, error) {
	endpoint := "/kv"
	if prefix != "" {
		endpoint += "?" + url.Values{"prefix": {prefix}}.Encode()
	}
	respBody, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var resp keysResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Keys, nil
}

// Health queries /healthz.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	respBody, err := c.request(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(respBody, &h); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &h, nil
}
