package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/LeventeLantos/sms-queue/internal/model"
)

// ErrNotFound is returned when the queue reports an unknown id.
var ErrNotFound = errors.New("sms not found")

// APIClient talks to a running sms-queue server on behalf of a polling agent.
type APIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAPIClient sends apiKey as X-API-Key when it is non-empty.
func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (c *APIClient) ListPending(ctx context.Context) ([]model.Message, error) {
	body, err := c.do(ctx, http.MethodGet, "/sms/pending")
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	if err := json.Unmarshal(body, &msgs); err != nil {
		return nil, fmt.Errorf("decode pending list: %w", err)
	}
	return msgs, nil
}

func (c *APIClient) MarkSent(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/sms/"+url.PathEscape(id)+"/mark-sent")
	return err
}

func (c *APIClient) MarkFailed(ctx context.Context, id, reason string) error {
	path := "/sms/" + url.PathEscape(id) + "/mark-failed"
	if reason != "" {
		path += "?" + url.Values{"reason": {reason}}.Encode()
	}
	_, err := c.do(ctx, http.MethodPatch, path)
	return err
}

func (c *APIClient) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	injectTrace(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, apiError(body))
	}
	return body, nil
}

func apiError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func injectTrace(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}
