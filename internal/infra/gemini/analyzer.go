package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Analyzer sends images plus directives to the Gemini API and returns the
// raw text response. Interpretation happens in the pipeline.
type Analyzer struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

func NewAnalyzer(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*Analyzer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Analyzer{client: client, modelName: modelName, logger: logger}, nil
}

func (a *Analyzer) Analyze(ctx context.Context, image []byte, directive string) (string, error) {
	model := a.client.GenerativeModel(a.modelName)

	resp, err := model.GenerateContent(ctx,
		genai.Text(directive),
		genai.ImageData("jpeg", image),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model %s", a.modelName)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	a.logger.Debug("analysis response received",
		zap.String("model", a.modelName),
		zap.Int("length", sb.Len()),
	)
	return sb.String(), nil
}

func (a *Analyzer) Close() error {
	return a.client.Close()
}
