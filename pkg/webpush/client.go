package webpush

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const maxErrorBody = 4 << 10

// Result is the outcome of one delivery attempt. Err is set only for
// network-level failures; otherwise StatusCode carries the push
// service's verdict.
type Result struct {
	StatusCode int
	Body       string
	Err        error
}

// Delivered reports whether the push service accepted the message.
func (r *Result) Delivered() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// EndpointGone reports whether the subscription is permanently invalid
// (client unsubscribed or expired) and must be removed.
func (r *Result) EndpointGone() bool {
	return r.Err == nil && (r.StatusCode == http.StatusNotFound || r.StatusCode == http.StatusGone)
}

// ErrorText returns the failure description recorded against the
// subscription.
func (r *Result) ErrorText() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.Body != "" {
		return fmt.Sprintf("push service returned %d: %s", r.StatusCode, r.Body)
	}
	return fmt.Sprintf("push service returned %d", r.StatusCode)
}

// Subscription is the key material needed to deliver to one endpoint.
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Client delivers encrypted messages to individual push endpoints.
type Client struct {
	http *http.Client
	auth *Authenticator
	ttl  int
}

func NewClient(auth *Authenticator, timeout time.Duration, ttlSeconds int) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		auth: auth,
		ttl:  ttlSeconds,
	}
}

// Deliver encrypts the payload for the subscription and posts it to the
// endpoint with a freshly signed VAPID token.
func (c *Client) Deliver(ctx context.Context, sub *Subscription, payload []byte) *Result {
	body, err := Encrypt(payload, sub.P256dh, sub.Auth)
	if err != nil {
		return &Result{Err: fmt.Errorf("failed to encrypt payload: %w", err)}
	}

	authorization, err := c.auth.AuthorizationHeader(sub.Endpoint)
	if err != nil {
		return &Result{Err: fmt.Errorf("failed to build VAPID token: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &Result{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("TTL", strconv.Itoa(c.ttl))

	resp, err := c.http.Do(req)
	if err != nil {
		return &Result{Err: err}
	}
	defer resp.Body.Close()

	result := &Result{StatusCode: resp.StatusCode}
	if !result.Delivered() {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		result.Body = string(bytes.TrimSpace(raw))
	}
	return result
}
