package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/internal/resilience"
)

// ProxyRequest is the body accepted by the summary proxy.
type ProxyRequest struct {
	Prompt string `json:"prompt"`
}

// ProxyResponse is the body returned by the summary proxy.
type ProxyResponse struct {
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// Proxy calls a remote summary proxy over HTTP.
type Proxy struct {
	url  string
	http *http.Client
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ProxyOption {
	return func(p *Proxy) {
		p.http = hc
	}
}

// NewProxy creates a proxy client for url.
func NewProxy(url string, timeout time.Duration, opts ...ProxyOption) *Proxy {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	p := &Proxy{url: url, http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Complete posts {prompt} and returns the text field of the reply.
func (p *Proxy) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ProxyRequest{Prompt: prompt})
	if err != nil {
		return "", eris.Wrap(err, "summary: marshal proxy request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "summary: create proxy request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", resilience.Transient(eris.Wrapf(model.ErrAIGeneration, "summary: proxy request: %v", err), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrapf(model.ErrAIGeneration, "summary: read proxy response: %v", err)
	}

	var out ProxyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", eris.Wrapf(model.ErrAIGeneration, "summary: decode proxy response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 || out.Error != "" {
		err := eris.Wrapf(model.ErrAIGeneration, "summary: proxy status %d: %s %s", resp.StatusCode, out.Error, out.Details)
		if resilience.IsTransientStatus(resp.StatusCode) {
			return "", resilience.Transient(err, resp.StatusCode)
		}
		return "", err
	}
	return out.Text, nil
}
