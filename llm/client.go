// Package llm implements the query-interpretation fallback behind the
// interfaces.LLMClient seam: an OpenAI-compatible chat completion asked to
// return {intent, entities, confidence} as JSON. The model output is
// untrusted; it is extracted leniently, validated against a JSON Schema and
// only then converted into an Interpretation. Every failure mode is an
// error the classifier degrades on, never a panic or a raw model payload.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juju/ratelimit"
	openai "github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
)

// Compile-time check
var _ interfaces.LLMClient = (*Interpreter)(nil)

var (
	// ErrDisabled is returned when no API key was configured.
	ErrDisabled = errors.New("llm fallback disabled: no API key configured")

	// ErrRateLimited is returned when the outbound budget is exhausted.
	// The call is dropped rather than queued; the classifier degrades.
	ErrRateLimited = errors.New("llm fallback rate limited")

	// ErrInvalidResponse is returned when the model output does not
	// contain a schema-valid interpretation.
	ErrInvalidResponse = errors.New("llm response failed validation")
)

const systemPrompt = `Tu es l'interpréteur de requêtes d'un assistant santé français.
Analyse la requête de l'utilisateur et réponds UNIQUEMENT avec un objet JSON de la forme:
{"intent": "...", "confidence": 0.0, "entities": [{"kind": "...", "value": "...", "confidence": 0.0}]}

intent est exactement l'un de: medication_search, reimbursement_simulation,
care_pathway, document_analysis, organization_search, practitioner_search,
general_query.
kind est exactement l'un de: condition, medication, specialty, location, name.
confidence est un nombre entre 0 et 1. Aucun texte hors du JSON.`

// interpretationSchema validates the decoded model output before any field
// is trusted.
const interpretationSchema = `{
	"type": "object",
	"required": ["intent", "confidence"],
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["medication_search", "reimbursement_simulation", "care_pathway",
				"document_analysis", "organization_search", "practitioner_search", "general_query"]
		},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"entities": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["kind", "value"],
				"properties": {
					"kind": {"type": "string", "enum": ["condition", "medication", "specialty", "location", "name"]},
					"value": {"type": "string", "minLength": 1},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1}
				}
			}
		},
		"reasoning": {"type": "string"}
	}
}`

// Config configures the interpretation client. Values come from the
// application config at startup.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	RatePerMinute int
}

// Interpreter calls an OpenAI-compatible endpoint and validates the reply.
type Interpreter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	bucket  *ratelimit.Bucket
	schema  *gojsonschema.Schema
	enabled bool
}

// New creates an interpretation client. An empty API key yields a disabled
// client whose Interpret always returns ErrDisabled.
func New(cfg Config) (*Interpreter, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(interpretationSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling interpretation schema: %w", err)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	rate := cfg.RatePerMinute
	if rate <= 0 {
		rate = 30
	}

	return &Interpreter{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		bucket:  ratelimit.NewBucketWithRate(float64(rate)/60.0, int64(rate)),
		schema:  schema,
		enabled: cfg.APIKey != "",
	}, nil
}

// wire shape of the model reply.
type rawInterpretation struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Entities   []struct {
		Kind       string  `json:"kind"`
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"entities"`
	Reasoning string `json:"reasoning"`
}

// Interpret asks the model to classify text. The returned Interpretation
// is schema-validated; any error means the caller must degrade.
func (i *Interpreter) Interpret(ctx context.Context, text string) (entities.Interpretation, error) {
	if !i.enabled {
		return entities.Interpretation{}, ErrDisabled
	}
	if i.bucket.TakeAvailable(1) < 1 {
		return entities.Interpretation{}, ErrRateLimited
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	resp, err := i.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       i.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return entities.Interpretation{}, fmt.Errorf("llm completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return entities.Interpretation{}, fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}

	return i.parse(resp.Choices[0].Message.Content)
}

// parse extracts, validates and converts the model output.
func (i *Interpreter) parse(content string) (entities.Interpretation, error) {
	payload := extractJSON(content)
	if payload == "" {
		return entities.Interpretation{}, fmt.Errorf("%w: no JSON object in output", ErrInvalidResponse)
	}

	result, err := i.schema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return entities.Interpretation{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !result.Valid() {
		return entities.Interpretation{}, fmt.Errorf("%w: %s", ErrInvalidResponse, firstSchemaError(result))
	}

	var raw rawInterpretation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return entities.Interpretation{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	interp := entities.Interpretation{
		Intent:     entities.Intent(raw.Intent),
		Confidence: clamp(raw.Confidence),
		Reasoning:  raw.Reasoning,
	}
	for _, ent := range raw.Entities {
		conf := ent.Confidence
		if conf == 0 {
			conf = interp.Confidence
		}
		interp.Entities = append(interp.Entities, entities.ExtractedEntity{
			Kind:           entities.EntityKind(ent.Kind),
			CanonicalValue: ent.Value,
			RawSpan:        ent.Value,
			Confidence:     clamp(conf),
			Method:         entities.MethodLLM,
		})
	}
	return interp, nil
}

// extractJSON pulls the first JSON object out of the model output,
// tolerating markdown code fences and prose around it.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if fenced := stripCodeFence(content); fenced != "" {
		content = fenced
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func stripCodeFence(content string) string {
	start := strings.Index(content, "```")
	if start == -1 {
		return ""
	}
	rest := content[start+3:]
	if nl := strings.Index(rest, "\n"); nl != -1 && !strings.HasPrefix(rest, "\n") {
		// Skip the language tag on the fence line
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end != -1 {
		return strings.TrimSpace(rest[:end])
	}
	return strings.TrimSpace(rest)
}

func firstSchemaError(result *gojsonschema.Result) string {
	for _, e := range result.Errors() {
		return e.String()
	}
	return "invalid"
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
