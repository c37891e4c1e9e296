package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"intentrelay/internal/schema"
)

// ErrGeneration indicates the backend failed to produce usable output:
// a transport error, a backend-side rejection, or a final object that does
// not satisfy the requested schema.
var ErrGeneration = errors.New("generation failed")

// Config carries the backend settings injected into the client. Nothing here
// is read from ambient process state by the client itself.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	ClassifierModel string
	MaxOutputTokens int64
}

// Client wraps the OpenAI Responses API for label, object, and text
// generation. One Client is shared by all requests; it holds no per-request
// state.
type Client struct {
	client          openai.Client
	model           string
	classifierModel string
	maxOutputTokens int64
}

// NewClient constructs a backend client from explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model must not be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	classifierModel := cfg.ClassifierModel
	if classifierModel == "" {
		classifierModel = cfg.Model
	}
	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = 2048
	}

	return &Client{
		client:          openai.NewClient(opts...),
		model:           cfg.Model,
		classifierModel: classifierModel,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

const classifierInstructions = `Classify the user's request into exactly one of the candidate intents.
Pick the intent whose output format best fits what the user is asking for.
Respond with the intent only.`

type labelResult struct {
	Intent string `json:"intent"`
}

// GenerateLabel asks the backend for exactly one label from candidates.
// The result is constrained via a strict enum schema; membership is still
// verified by the caller because the backend contract may be violated.
func (c *Client) GenerateLabel(ctx context.Context, prompt string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", errors.New("candidates must not be empty")
	}

	enum := make([]any, len(candidates))
	for i, candidate := range candidates {
		enum[i] = candidate
	}
	labelSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type": "string",
				"enum": enum,
			},
		},
		"required":             []string{"intent"},
		"additionalProperties": false,
	}

	params := responses.ResponseNewParams{
		Model:           c.classifierModel,
		MaxOutputTokens: openai.Int(64),
		Temperature:     openai.Float(0),
		Instructions:    openai.String(classifierInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "Intent",
					Schema:      labelSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Detected intent"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("classifier request: %w", err)
	}

	var result labelResult
	if err := json.Unmarshal([]byte(resp.OutputText()), &result); err != nil {
		return "", fmt.Errorf("decode classifier output: %w", err)
	}
	return result.Intent, nil
}

// GenerateObject produces one final object for the entry's schema in a single
// blocking call.
func (c *Client) GenerateObject(ctx context.Context, entry schema.Entry, prompt string) (schema.Object, error) {
	params := c.objectParams(entry, prompt)

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	out, err := entry.Decode(json.RawMessage(resp.OutputText()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return out, nil
}

// GenerateText produces plain text for the prompt in a single blocking call.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Responses.New(ctx, c.textParams(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return resp.OutputText(), nil
}

func (c *Client) objectParams(entry schema.Entry, prompt string) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        entry.Name,
					Schema:      entry.JSONSchema,
					Strict:      openai.Bool(true),
					Description: openai.String(entry.Description),
					Type:        "json_schema",
				},
			},
		},
	}
}

func (c *Client) textParams(prompt string) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
}
