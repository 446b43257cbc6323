package interceptor

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGenerator adapts the Anthropic SDK to the Generator
// capability.
type AnthropicGenerator struct {
	client anthropic.Client
}

// NewAnthropicGenerator creates an Anthropic-backed generator.
func NewAnthropicGenerator(apiKey string) *AnthropicGenerator {
	return &AnthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Provider returns the provider name.
func (g *AnthropicGenerator) Provider() string {
	return "anthropic"
}

// Generate makes a messages API call to Anthropic Claude.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt Prompt) (*Generation, error) {
	messages := []anthropic.MessageParam{}
	for _, msg := range prompt.Messages {
		switch msg.Role {
		case "assistant":
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		default:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(prompt.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: prompt.System},
		}
	}
	if prompt.Temperature > 0 {
		params.Temperature = anthropic.Float(prompt.Temperature)
	}

	response, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	content := ""
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += b.Text
		}
	}

	return &Generation{
		Content: content,
		Model:   string(response.Model),
		Usage: &Usage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}, nil
}
