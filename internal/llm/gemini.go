package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Provider implements Client
func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

// Complete implements Client
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		return "", &ProviderError{Provider: ProviderGemini, Kind: KindUnknown, Message: "no model configured"}
	}

	model := c.client.GenerativeModel(req.Model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	return extractTextFromResponse(resp)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", InvalidResponse(ProviderGemini, "no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", InvalidResponse(ProviderGemini, fmt.Sprintf("no content in response (finish reason %s)", candidate.FinishReason))
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", InvalidResponse(ProviderGemini, "no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

func classifyGeminiError(err error) *ProviderError {
	providerErr := &ProviderError{Provider: ProviderGemini, Kind: classifyTransport(err), Cause: err}
	if providerErr.Kind != KindUnknown {
		return providerErr
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		providerErr.Kind = KindInvalidResponse
		return providerErr
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		providerErr.StatusCode = apiErr.Code
		providerErr.Kind = classifyStatus(apiErr.Code)
		return providerErr
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			providerErr.Kind = KindRateLimited
		case codes.DeadlineExceeded:
			providerErr.Kind = KindTimeout
		case codes.Unavailable, codes.Internal, codes.Aborted:
			providerErr.Kind = KindUnavailable
		case codes.Unauthenticated, codes.PermissionDenied:
			providerErr.Kind = KindAuth
		}
	}
	return providerErr
}
