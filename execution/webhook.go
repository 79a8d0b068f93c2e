// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const DefaultWebhookTimeout = 30 * time.Second

// WebhookSink POSTs each request as JSON to a URL. Any response status
// outside 2xx is a failure.
type WebhookSink struct {
	logger  *slog.Logger
	client  *http.Client
	url     string
	headers map[string]string
}

type WebhookOptionFunc func(*WebhookSink)

// WithWebhookLogger specifies the logger object to use for logging messages
func WithWebhookLogger(logger *slog.Logger) WebhookOptionFunc {
	return func(s *WebhookSink) {
		s.logger = logger
	}
}

// WithWebhookClient specifies the HTTP client used for requests
func WithWebhookClient(client *http.Client) WebhookOptionFunc {
	return func(s *WebhookSink) {
		s.client = client
	}
}

// WithWebhookHeader adds a header to every request
func WithWebhookHeader(name, value string) WebhookOptionFunc {
	return func(s *WebhookSink) {
		s.headers[name] = value
	}
}

func NewWebhookSink(url string, opts ...WebhookOptionFunc) *WebhookSink {
	s := &WebhookSink{
		url:     url,
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: DefaultWebhookTimeout}
	}
	return s
}

func (s *WebhookSink) Execute(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.url,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for name, value := range s.headers {
		httpReq.Header.Set(name, value)
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}
	defer resp.Body.Close()
	// Drain a bounded amount so the connection can be reused
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf(
			"%w: webhook returned %s: %s",
			ErrExecutionFailed,
			resp.Status,
			bytes.TrimSpace(respBody),
		)
	}
	s.logger.Debug(
		"webhook accepted proposal messages",
		"component", "execution",
		"proposal_id", req.ProposalID,
		"status", resp.StatusCode,
	)
	return nil
}
