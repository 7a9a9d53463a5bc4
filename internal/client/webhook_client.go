package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// WebhookClient posts a message to a delivery gateway. The gateway accepts
// with 202 and a messageId.
type WebhookClient struct {
	url    string
	client *http.Client
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// GatewayError is returned when the gateway answers with anything but 202.
// Error reports the status only; Body holds the raw response for logging.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway status %d", e.StatusCode)
}

type gatewayRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

type gatewayResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

func (c *WebhookClient) Send(ctx context.Context, phoneNumber, message string) (string, error) {
	payload, err := json.Marshal(gatewayRequest{PhoneNumber: phoneNumber, Message: message})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	injectTrace(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return "", &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var gr gatewayResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if gr.MessageID == "" {
		return "", errors.New("gateway response missing messageId")
	}
	return gr.MessageID, nil
}
