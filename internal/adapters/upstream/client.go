// Package upstream calls the data pipeline endpoints that answer card
// and creature queries. Responses are decoded as arbitrary JSON; shape
// recognition is the extract package's job.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardbot/pkg/logger"
	"cardbot/pkg/metrics"
)

const defaultTimeout = 55 * time.Second

// errorBodyLimit caps how much of an error response is kept for the
// error message.
const errorBodyLimit = 2048

// callRequest is the pipeline chat-trigger payload.
type callRequest struct {
	OutputType string       `json:"output_type"`
	InputType  string       `json:"input_type"`
	InputValue string       `json:"input_value"`
	Metadata   callMetadata `json:"metadata"`
}

type callMetadata struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Client posts queries to a pipeline endpoint.
type Client struct {
	http   *http.Client
	apiKey string
	log    logger.Logger
}

// New builds a pipeline client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: defaultTimeout},
		log:  logger.Named("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call posts the query to endpoint and decodes the response envelope.
// The envelope's shape is pipeline-defined and returned as-is; non-2xx
// statuses come back as a *StatusError.
func (c *Client) Call(ctx context.Context, endpoint, userID, displayName, query string) (any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	body, err := json.Marshal(callRequest{
		OutputType: "chat",
		InputType:  "chat",
		InputValue: query,
		Metadata: callMetadata{
			UserID:   userID,
			Username: displayName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	metrics.ObserveUpstreamLatency(float64(latency.Milliseconds()))
	if err != nil {
		metrics.RecordUpstreamError()
		metrics.RecordErrorByComponent("upstream", "transport")
		return nil, fmt.Errorf("calling pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		metrics.RecordUpstreamError()
		metrics.RecordErrorByComponent("upstream", "status")
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var envelope any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		metrics.RecordUpstreamError()
		metrics.RecordErrorByComponent("upstream", "decode")
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.log.Debug(ctx, "pipeline call completed",
		logger.String("endpoint", endpoint),
		logger.Int("status", resp.StatusCode),
		logger.Duration("latency", latency))
	return envelope, nil
}
