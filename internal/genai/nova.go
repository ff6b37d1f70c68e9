package genai

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

// converser is the subset of the Bedrock runtime client Nova uses.
type converser interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Nova is a TextGenerator backed by Amazon Nova through the Bedrock Converse API.
type Nova struct {
	model  string
	client converser
}

// NewNova loads the default AWS config and returns a Nova backend.
func NewNova(ctx context.Context, model string) (*Nova, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newNova(model, bedrockruntime.NewFromConfig(cfg)), nil
}

func newNova(model string, client converser) *Nova {
	if id, ok := novaModels[model]; ok {
		model = id
	}
	if model == "" {
		model = novaModels["nova-lite"]
	}
	return &Nova{model: model, client: client}
}

// GenerateText implements TextGenerator.
func (n *Nova) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	model := n.model
	if req.Model != "" {
		model = orDefault(novaModels[req.Model], req.Model)
	}
	ctx, span := tracer.Start(ctx, "genai.text", trace.WithAttributes(
		attribute.String("genai.backend", "nova"),
		attribute.String("genai.model", model),
	))
	defer span.End()

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	inference := &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(maxTokens))}
	if req.Temperature > 0 {
		inference.Temperature = aws.Float32(float32(req.Temperature))
	}

	resp, err := n.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: claudeSystemPrompt},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
		InferenceConfig: inference,
	})
	if err != nil {
		err = Classify(err)
		recordError(span, err)
		return "", err
	}
	return extractNovaText(resp), nil
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}

var _ TextGenerator = (*Nova)(nil)
