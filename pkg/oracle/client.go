// Package oracle talks to the OpenAI-compatible chat completions endpoint
// that does the actual image recognition.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Options configures a Client.
type Options struct {
	Endpoint    string
	Model       string
	APIKey      string // optional, sent as a bearer token
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Image is the inline image attached to a request.
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is one analysis call.
type Request struct {
	Image     Image
	Weight    float64
	LabelText string
}

// Client sends analysis requests. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// New returns a client. The request timeout is applied per call through the
// context, so the http.Client itself has none.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends the image and returns the raw text of the first choice.
func (c *Client) Analyze(ctx context.Context, req Request) (string, error) {
	payload := chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: BuildPrompt(req.Weight, req.LabelText)},
				{Type: "image_url", ImageURL: &imageURL{URL: DataURI(req.Image)}},
			},
		}},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		Stream:      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("LLM request timed out after %s: %w", c.opts.Timeout, err)
		}
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		log.Printf("WARN LLM responded with text/event-stream; ensure non-streaming mode is supported")
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	log.Printf("LLM call completed in %s", time.Since(started).Round(time.Millisecond))

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := contentText(parsed.Choices[0].Message.Content)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// contentText accepts both a plain string and an array of text parts.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" || p.Type == "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
