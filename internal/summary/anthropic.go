package summary

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadledger/internal/model"
	"github.com/sells-group/leadledger/pkg/anthropic"
)

// Anthropic completes prompts with the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic completer.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 128
	}
	return &Anthropic{client: client, model: model, maxTokens: maxTokens}
}

// Complete sends prompt under the CRM system instruction.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    SystemInstruction,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrapf(model.ErrAIGeneration, "summary: anthropic: %v", err)
	}
	resp.Usage.Log(a.model, "lead_summary")
	return resp.Text(), nil
}
