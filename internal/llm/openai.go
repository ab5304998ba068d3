package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"
)

// OpenAIClient implements Client for the OpenAI chat completions API
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a new OpenAI client. SDK-level retries are disabled;
// retry policy belongs to the Caller.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

// Provider implements Client
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

// Complete implements Client
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model:       req.Model,
		Temperature: openai.Float(0.1), // Low temperature for consistency
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: constant.JSONObject("json_object"),
			},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(completion.Choices) == 0 {
		return "", InvalidResponse(ProviderOpenAI, "no choices in response")
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", InvalidResponse(ProviderOpenAI, "empty message content (finish reason "+completion.Choices[0].FinishReason+")")
	}
	return content, nil
}

// Close implements Client
func (c *OpenAIClient) Close() error {
	return nil
}

func classifyOpenAIError(err error) *ProviderError {
	providerErr := &ProviderError{Provider: ProviderOpenAI, Kind: classifyTransport(err), Cause: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		providerErr.StatusCode = apiErr.StatusCode
		providerErr.Kind = classifyStatus(apiErr.StatusCode)
	}
	return providerErr
}
