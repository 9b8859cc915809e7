package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/projecthayat/hayat/pkg/detection"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the part of the genai client used here.
// (*genai.Client).Models implements it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for the plan and falls back to another
// generator on any failure.
type Gemini struct {
	Client   ContentGenerator
	Model    string
	Fallback Generator
	Logger   *slog.Logger
}

// NewGemini creates a Gemini generator with an API key. The fallback is
// Offline.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("plan: gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("plan: genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{Client: client.Models, Model: model, Fallback: Offline{}}, nil
}

const systemPrompt = `You are the tactical coordinator of a search-and-rescue operation after an earthquake.
You receive drone image classifications (DAMAGED / UNDAMAGED) and acoustic classifications (SCREAM / NOISE).
Life signs take precedence over structural damage. Reply with a short military-style rescue plan.`

var planSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary":       {Type: genai.TypeString},
		"priorityZones": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"safePath":      {Type: genai.TypeString},
		"warnings":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"summary", "priorityZones", "safePath", "warnings"},
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, detections []detection.Detection) (Plan, error) {
	p, err := g.generate(ctx, detections)
	if err == nil {
		return p, nil
	}
	if g.Fallback == nil {
		return Plan{}, err
	}
	g.logger().Warn("plan: gemini failed, using fallback", "model", g.Model, "error", err)
	return g.Fallback.Generate(ctx, detections)
}

func (g *Gemini) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g *Gemini) generate(ctx context.Context, detections []detection.Detection) (Plan, error) {
	if g.Client == nil {
		return Plan{}, errors.New("plan: gemini client not configured")
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(systemPrompt)}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    planSchema,
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(prompt(detections))},
	}}

	resp, err := g.Client.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: gemini generate: %w", err)
	}
	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	p, err := parseReply(sb.String())
	if err != nil {
		return Plan{}, err
	}
	p.Scenario = Assess(detections).Scenario()
	p.Source = SourceGemini
	return p, nil
}

// prompt lists the detections, one per line.
func prompt(detections []detection.Detection) string {
	a := Assess(detections)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detections: %d total, %d distress calls, %d damaged structures.\n", len(detections), a.Voices, a.Damaged)
	for _, d := range detections {
		fmt.Fprintf(&sb, "- %s %s %s confidence %.2f", d.Time.Format("15:04:05"), d.Modality, d.Label, d.Confidence)
		if d.Filename != "" {
			fmt.Fprintf(&sb, " (%s)", d.Filename)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
