package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is the uniform outcome of a provider send call.
type Result struct {
	Accepted    bool
	ProviderRef string
	RawError    string
}

// Client abstracts the SMS provider's send/status API.
type Client interface {
	Send(ctx context.Context, from, to, text string) (Result, error)
	Status(ctx context.Context, providerRef string) (string, error)
}

// Provider status vocabulary mapped into the message state machine.
const (
	StatusDelivered = "delivered"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

// MapStatus folds the provider's status text into {delivered, sent, failed};
// anything unrecognized counts as still in flight ("sent").
func MapStatus(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "delivered", "delivrd", "ok":
		return StatusDelivered
	case "failed", "undelivered", "rejected", "expired":
		return StatusFailed
	default:
		return StatusSent
	}
}

// HTTPClient talks to the provider over HTTP with a bounded timeout and a
// circuit breaker. Any non-2xx response is a transport failure.
type HTTPClient struct {
	baseURL    string
	sendPath   string
	statusPath string
	client     *http.Client
	br         *Breaker
}

var ErrBreakerOpen = fmt.Errorf("transport: breaker open")

func NewHTTPClient(baseURL, sendPath, statusPath string, timeoutMs, failThreshold, openForMs int) *HTTPClient {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sendPath:   sendPath,
		statusPath: statusPath,
		client:     &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:         NewBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

type sendPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (c *HTTPClient) Send(ctx context.Context, from, to, text string) (Result, error) {
	if !c.br.TryAcquire() {
		return Result{RawError: "breaker open"}, ErrBreakerOpen
	}

	b, _ := json.Marshal(sendPayload{From: from, To: to, Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.sendPath, bytes.NewReader(b))
	if err != nil {
		c.br.OnFailure()
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		c.br.OnFailure()
		return Result{RawError: err.Error()}, err
	}
	defer res.Body.Close()

	var body sendResponse
	_ = json.NewDecoder(res.Body).Decode(&body)

	if res.StatusCode/100 != 2 {
		c.br.OnFailure()
		raw := body.Error
		if raw == "" {
			raw = fmt.Sprintf("status=%d", res.StatusCode)
		}
		return Result{RawError: raw}, fmt.Errorf("transport: send status=%d", res.StatusCode)
	}

	c.br.OnSuccess()
	return Result{Accepted: true, ProviderRef: body.MessageID}, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

func (c *HTTPClient) Status(ctx context.Context, providerRef string) (string, error) {
	u := c.baseURL + c.statusPath + url.PathEscape(providerRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return "", fmt.Errorf("transport: status status=%d", res.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Status, nil
}
