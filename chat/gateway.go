package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"phone-sim-demo/backend/pkg/logger"
)

// GatewayClient talks to an OpenAI-compatible chat completions endpoint.
// The base URL may point at a bare host, a host with /v1, or any proxy
// that mimics the same contract.
type GatewayClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	log     *logger.Logger
}

// GatewayOptions configures a gateway client.
type GatewayOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewGatewayClient(opts GatewayOptions) *GatewayClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GatewayClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		log:     logger.GetGlobal().WithComponent("gateway"),
	}
}

// completionURL normalizes the configured base URL into a full chat
// completions endpoint. Bases that already contain a /v1 path segment
// only get the /chat/completions suffix appended.
func completionURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !strings.Contains(base, "/v1") {
		return base + "/v1/chat/completions"
	}
	return base + "/chat/completions"
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends one composed request and returns the raw reply text.
// Transport failures, non-2xx statuses and unparseable bodies map to
// the gateway error codes the HTTP layer understands.
func (c *GatewayClient) Generate(ctx context.Context, req *GenerationRequest) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: 0.85,
	})
	if err != nil {
		return "", newGatewayUnavailableError("encode request: "+err.Error())
	}

	url := completionURL(c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", newGatewayUnavailableError(err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Warn("completion request failed", "url", url, "error", err)
		return "", newGatewayUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("completion request rejected",
			"url", url, "status", resp.StatusCode, "body", string(snippet))
		return "", newGatewayUnavailableError(fmt.Sprintf("upstream status %d", resp.StatusCode))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", newMalformedReplyError("decode response: "+err.Error())
	}
	if len(parsed.Choices) == 0 {
		return "", newMalformedReplyError("no choices in response")
	}

	c.log.Debug("completion finished",
		"model", c.model, "duration_ms", time.Since(start).Milliseconds())
	return parsed.Choices[0].Message.Content, nil
}
