package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client for the Anthropic messages API
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client. SDK-level retries are disabled;
// retry policy belongs to the Caller.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

// Provider implements Client
func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

// Complete implements Client. The JSON flag has no API equivalent here; the prompt
// itself asks for JSON.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(0.1),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: req.Prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", InvalidResponse(ProviderAnthropic, "no text content in response (stop reason "+string(response.StopReason)+")")
	}
	return sb.String(), nil
}

// Close implements Client
func (c *AnthropicClient) Close() error {
	return nil
}

func classifyAnthropicError(err error) *ProviderError {
	providerErr := &ProviderError{Provider: ProviderAnthropic, Kind: classifyTransport(err), Cause: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		providerErr.StatusCode = apiErr.StatusCode
		providerErr.Kind = classifyStatus(apiErr.StatusCode)
	}
	return providerErr
}
