package server

import "encoding/json"

// KVResponse is the body of GET /kv/{key}.
type KVResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// KeysResponse is the body of GET /kv.
type KeysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// StatusResponse acknowledges a mutation.
type StatusResponse struct {
	Status string `json:"status"`
	Key    string `json:"key,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status     string `json:"status"`
	Keys       int    `json:"keys"`
	StoreBytes int64  `json:"store_bytes"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}
