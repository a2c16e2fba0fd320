package extract

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the completion model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultTimeout bounds a single extraction call. The adapter is the only
// network-bound step in an import; it must not hang a worker indefinitely.
const DefaultTimeout = 2 * time.Minute

// GeminiExtractor implements Extractor on the Gemini API.
type GeminiExtractor struct {
	model   string
	timeout time.Duration
}

// NewGeminiExtractor creates a Gemini-backed extractor. Zero values select
// DefaultModel and DefaultTimeout. Credentials come from the environment,
// same as every other Google client in this service.
func NewGeminiExtractor(model string, timeout time.Duration) *GeminiExtractor {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiExtractor{model: model, timeout: timeout}
}

// Extract sends the document and the fixed schema instruction in a single
// request and decodes the single response. Transport or service failures
// wrap ErrExtractionService; an unparseable response degrades to an empty
// result with a diagnostic. The call runs under the configured timeout and
// honors cancellation of ctx.
func (g *GeminiExtractor) Extract(ctx context.Context, document []byte, fileName string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", ErrExtractionService, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     document,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content for %q: %v", ErrExtractionService, fileName, err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return &Result{Diagnostics: []string{DiagCouldNotParseDocument + ": empty service response"}}, nil
	}

	return decodeResponse(rawText), nil
}

var _ Extractor = (*GeminiExtractor)(nil)
