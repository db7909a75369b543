package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/duynguyendang/pyscope/pkg/analyzer"
)

// GeminiService produces natural-language explanations of extracted
// definitions. It is optional: the server runs without it when no API key is
// configured.
type GeminiService struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiService creates the service. The key falls back to the
// GEMINI_API_KEY environment variable; the model to GEMINI_MODEL.
func NewGeminiService(ctx context.Context, apiKey string) (*GeminiService, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	modelName := os.Getenv("GEMINI_MODEL")
	if modelName == "" {
		modelName = "gemini-2.0-flash-exp"
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2) // Low temperature for technical accuracy

	return &GeminiService{client: client, model: model}, nil
}

// Close releases the underlying client.
func (s *GeminiService) Close() error {
	return s.client.Close()
}

// Explain asks the model to describe one definition's role, using its code
// and resolved graph edges as context.
func (s *GeminiService) Explain(ctx context.Context, def *analyzer.Definition) (string, error) {
	prompt := buildExplainPrompt(def)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "No response from AI.", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

func buildExplainPrompt(def *analyzer.Definition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Explain the role of the %s %q in a few sentences.\n", def.Kind, def.ID)
	if len(def.Calls) > 0 {
		fmt.Fprintf(&sb, "It calls: %s.\n", strings.Join(def.Calls, ", "))
	}
	if len(def.CalledBy) > 0 {
		fmt.Fprintf(&sb, "It is called by: %s.\n", strings.Join(def.CalledBy, ", "))
	}
	if len(def.Instantiates) > 0 {
		fmt.Fprintf(&sb, "It instantiates: %s.\n", strings.Join(def.Instantiates, ", "))
	}
	sb.WriteString("Source:\n```\n")
	sb.WriteString(def.Code)
	sb.WriteString("\n```\n")
	return sb.String()
}
