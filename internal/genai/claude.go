package genai

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

const claudeSystemPrompt = "You plan short-form social videos. Reply with exactly one JSON object that matches the requested fields. Do not add commentary or markdown."

// Claude is a TextGenerator backed by the Anthropic Messages API. It has no
// structured-output mode; the schema is carried by the prompt text.
type Claude struct {
	client anthropic.Client
	model  string
}

// NewClaude returns a Claude backend. model may be an alias (haiku, sonnet) or
// a full model id. The API key defaults to ANTHROPIC_API_KEY.
func NewClaude(model string, opts ...option.RequestOption) *Claude {
	if id, ok := claudeModels[model]; ok {
		model = id
	}
	if model == "" {
		model = claudeModels["haiku"]
	}
	return &Claude{client: anthropic.NewClient(opts...), model: model}
}

// GenerateText implements TextGenerator.
func (c *Claude) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	model := c.model
	if req.Model != "" {
		model = orDefault(claudeModels[req.Model], req.Model)
	}
	ctx, span := tracer.Start(ctx, "genai.text", trace.WithAttributes(
		attribute.String("genai.backend", "claude"),
		attribute.String("genai.model", model),
	))
	defer span.End()

	maxTokens := int64(req.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: claudeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		err = Classify(err)
		recordError(span, err)
		return "", err
	}

	var b strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}

var _ TextGenerator = (*Claude)(nil)
