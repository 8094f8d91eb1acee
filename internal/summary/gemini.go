package summary

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/leadledger/internal/model"
)

// ContentGenerator is the slice of the genai Models service Gemini needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini completes prompts with the Gemini API.
type Gemini struct {
	models ContentGenerator
	model  string
}

// NewGemini creates a Gemini completer backed by the public Gemini API.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "summary: create gemini client")
	}
	return NewGeminiFromModels(client.Models, modelName), nil
}

// NewGeminiFromModels wraps an existing content generator.
func NewGeminiFromModels(models ContentGenerator, modelName string) *Gemini {
	return &Gemini{models: models, model: modelName}
}

// Complete sends prompt under the CRM system instruction.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", eris.Wrapf(model.ErrAIGeneration, "summary: gemini: %v", err)
	}
	return resp.Text(), nil
}
