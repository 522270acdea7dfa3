package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Generator adapts an eino ChatModel to the single-prompt generation port
// the tutor and PDF paths consume. Each call is one user message; dialogue
// context is already baked into the prompt by the caller.
type Generator struct {
	chat model.ToolCallingChatModel
}

// NewGenerator wraps chat.
func NewGenerator(chat model.ToolCallingChatModel) (*Generator, error) {
	if chat == nil {
		return nil, fmt.Errorf("provider: chat model is required")
	}
	return &Generator{chat: chat}, nil
}

// Generate runs one completion and returns the model's text content.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("provider: generation failed: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("provider: model returned no message")
	}
	return msg.Content, nil
}
