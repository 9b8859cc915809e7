package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/projecthayat/hayat/pkg/detection"
)

// DefaultOpenAIModel is used when no model name is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// ChatCompleter is the part of the OpenAI client used here.
// &(*openai.Client).Chat.Completions implements it.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI asks an OpenAI-compatible chat model for the plan and falls back
// to another generator on any failure. Any server speaking the chat
// completions API works through a base URL.
type OpenAI struct {
	Client   ChatCompleter
	Model    string
	Fallback Generator
	Logger   *slog.Logger
}

// NewOpenAI creates an OpenAI generator. baseURL may be empty for the
// OpenAI API. The fallback is Offline.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("plan: openai api key is empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{Client: &client.Chat.Completions, Model: model, Fallback: Offline{}}, nil
}

var replySchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.For[reply](&jsonschema.ForOptions{})
})

// Generate implements Generator.
func (g *OpenAI) Generate(ctx context.Context, detections []detection.Detection) (Plan, error) {
	p, err := g.generate(ctx, detections)
	if err == nil {
		return p, nil
	}
	if g.Fallback == nil {
		return Plan{}, err
	}
	g.logger().Warn("plan: openai failed, using fallback", "model", g.Model, "error", err)
	return g.Fallback.Generate(ctx, detections)
}

func (g *OpenAI) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g *OpenAI) generate(ctx context.Context, detections []detection.Detection) (Plan, error) {
	if g.Client == nil {
		return Plan{}, errors.New("plan: openai client not configured")
	}
	schema, err := replySchema()
	if err != nil {
		return Plan{}, fmt.Errorf("plan: reply schema: %w", err)
	}
	params := openai.ChatCompletionNewParams{
		Model: g.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt(detections)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "rescue_plan",
					Description: param.NewOpt("Rescue plan for the reported detections"),
					Schema:      schema,
				},
			},
		},
	}

	resp, err := g.Client.New(ctx, params)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Plan{}, errors.New("plan: openai reply has no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return Plan{}, fmt.Errorf("plan: openai refused: %s", msg.Refusal)
	}

	p, err := parseReply(msg.Content)
	if err != nil {
		return Plan{}, err
	}
	p.Scenario = Assess(detections).Scenario()
	p.Source = SourceOpenAI
	return p, nil
}
