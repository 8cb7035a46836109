package inference

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

const prompt = "Analyze this facial image for a security visitor log system. " +
	"Provide a structured analysis of the person's demographics and appearance. " +
	"Also, strictly for simulation purposes, estimate a 'confidence score' between 0.85 and 0.99 " +
	"pretending you matched this against a database."

// contentGenerator is the part of *genai.Models the analyzer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type GeminiAnalyzer struct {
	models contentGenerator
	model  string
}

// NewAnalyzer returns a Gemini-backed analyzer, or Unavailable when no API
// key is configured.
func NewAnalyzer(ctx context.Context, cfg GeminiConfig) (Analyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Unavailable{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return newGeminiAnalyzer(client.Models, cfg.Model), nil
}

func newGeminiAnalyzer(models contentGenerator, model string) *GeminiAnalyzer {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiAnalyzer{models: models, model: model}
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"age_range":                  {Type: genai.TypeString},
			"gender":                     {Type: genai.TypeString},
			"emotion":                    {Type: genai.TypeString},
			"wearing_glasses":            {Type: genai.TypeBoolean},
			"distinguishing_features":    {Type: genai.TypeString},
			"simulated_match_confidence": {Type: genai.TypeNumber},
		},
		Required: []string{
			"age_range",
			"gender",
			"emotion",
			"wearing_glasses",
			"distinguishing_features",
			"simulated_match_confidence",
		},
	}
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, jpeg []byte) (Analysis, error) {
	if len(jpeg) == 0 {
		return Analysis{}, &InferenceError{Reason: ReasonMalformed, Err: errors.New("empty image")}
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(jpeg, "image/jpeg"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Analysis{}, &InferenceError{Reason: ReasonTransport, Err: err}
	}
	if resp == nil {
		return Analysis{}, &InferenceError{Reason: ReasonEmpty}
	}
	return ParseAnalysis(resp.Text())
}
