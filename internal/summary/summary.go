// Package summary generates one-sentence CRM summaries for leads.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadledger/internal/model"
)

// SystemInstruction frames every summary request.
const SystemInstruction = "You are a professional CRM intelligence agent. " +
	"Generate a concise, one-sentence professional summary for a lead based on " +
	"the provided company name and business type. Focus on business value and opportunities."

// DefaultPlaceholder is returned when no provider can produce a summary.
const DefaultPlaceholder = "Intelligence offline."

// Generator produces a short summary for a company.
type Generator interface {
	Generate(ctx context.Context, company, category string) (string, error)
}

// Completer answers a free-form prompt. It backs the summary proxy endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Prompt builds the user prompt for a company.
func Prompt(company, category string) string {
	return fmt.Sprintf("Company: %s, Industry: %s. Generate a concise one-sentence CRM summary.", company, category)
}

// promptGenerator adapts a Completer into a Generator.
type promptGenerator struct {
	c Completer
}

// FromCompleter returns a Generator that sends Prompt(company, category) to c.
func FromCompleter(c Completer) Generator {
	return &promptGenerator{c: c}
}

func (g *promptGenerator) Generate(ctx context.Context, company, category string) (string, error) {
	text, err := g.c.Complete(ctx, Prompt(company, category))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", eris.Wrap(model.ErrAIGeneration, "summary: empty response")
	}
	return text, nil
}

// Fallback wraps a Generator so failures degrade to a placeholder.
type Fallback struct {
	next        Generator
	placeholder string
}

// NewFallback wraps next. A nil next always yields the placeholder.
func NewFallback(next Generator, placeholder string) *Fallback {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Fallback{next: next, placeholder: placeholder}
}

// Summarize never fails.
func (f *Fallback) Summarize(ctx context.Context, company, category string) string {
	if f.next == nil {
		return f.placeholder
	}
	text, err := f.next.Generate(ctx, company, category)
	if err != nil {
		zap.L().Warn("summary: generation failed, using placeholder",
			zap.String("company", company),
			zap.Error(err),
		)
		return f.placeholder
	}
	return text
}

// Placeholder returns the configured fallback text.
func (f *Fallback) Placeholder() string { return f.placeholder }

// Generate implements Generator; the error is always nil.
func (f *Fallback) Generate(ctx context.Context, company, category string) (string, error) {
	return f.Summarize(ctx, company, category), nil
}
