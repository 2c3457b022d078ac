package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"poold/pkg/types"
)

const defaultRemoteBaseURL = "https://api.openai.com/v1"

// RemoteProvider is the remote completion collaborator: the direct remote
// path and the ultimate fallback for non-local-only models.
type RemoteProvider interface {
	Completion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error)
}

// OpenAIClient talks to any OpenAI-compatible completion API. Transport
// retries (connection resets, 429, 5xx) are handled by retryablehttp.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
}

func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultRemoteBaseURL
	}
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = time.Second
	c.RetryWaitMax = 10 * time.Second
	c.HTTPClient.Timeout = 5 * time.Minute
	c.Logger = nil
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  c,
	}
}

func (c *OpenAIClient) Completion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}
	url := c.baseURL + "/chat/completions"
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, upstreamError{url: url, status: resp.StatusCode, body: strings.TrimSpace(string(tail))}
	}
	var out types.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode remote completion: %w", err)
	}
	return &out, nil
}
