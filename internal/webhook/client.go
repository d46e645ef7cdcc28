package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout = 5 * time.Second
	userAgent      = "error-relay/1"
)

// HTTPClient abstrai a execução da request. *http.Client satisfaz.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeliveryError é uma falha de entrega: erro de rede, timeout ou status não-2xx.
type DeliveryError struct {
	// StatusCode é 0 quando não houve resposta.
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook returned HTTP %d", e.StatusCode)
	}
	return "webhook request failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Client faz um único POST JSON para o webhook configurado.
type Client struct {
	http    HTTPClient
	url     string
	timeout time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(c HTTPClient) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// NewClient valida a URL do webhook: http/https com host.
func NewClient(rawURL string, opts ...ClientOption) (*Client, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	c := &Client{
		http:    &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		url:     rawURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL must include a host")
	}
	return nil
}

func (c *Client) URL() string            { return c.url }
func (c *Client) Timeout() time.Duration { return c.timeout }

// Post envia o conteúdo. O timeout do client vale mesmo se ctx não tiver deadline.
func (c *Client) Post(ctx context.Context, content string) error {
	body, err := json.Marshal(Payload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer func() {
		// drena para reaproveitar a conexão
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{StatusCode: resp.StatusCode, Err: fmt.Errorf("status %s", resp.Status)}
	}
	return nil
}

// RedactURL reduz a URL a scheme://host para log. Webhooks de chat carregam o
// token no path.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "<invalid-url>"
	}
	return u.Scheme + "://" + u.Host + "/***"
}
