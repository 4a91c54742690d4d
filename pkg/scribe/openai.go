package scribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the chat model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// summaryPrompt is the instruction wrapped around the conversation. The
// bold section markers it requests are what the chart parser extracts.
const summaryPrompt = `You are a clinical assistant summarizing a medical interaction between a nurse and a patient.

Conversation:
---
%s
---

Instructions:
1. Identify symptoms, medications, actions taken, and any responses or concerns.
2. Focus on key medical terms like "pain", "medication", "blood pressure", "vomiting", "history", "follow-up", etc.
3. Provide a concise and clinically useful **Summary:** section.
4. Create a structured Nursing Chart using exactly these bold headings:

**Assessment:**
**Diagnosis:**
**Plan:**
**Interventions:**
**Evaluation:**

Ensure accuracy and clarity in professional tone.`

// OpenAISummarizer implements Summarizer directly against the OpenAI chat
// completions API, bypassing the halo backend. It can also target any
// OpenAI-compatible provider via WithOpenAIBaseURL.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

var _ Summarizer = (*OpenAISummarizer)(nil)

// openAIConfig collects OpenAISummarizer options.
type openAIConfig struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAISummarizer.
type OpenAIOption func(*openAIConfig)

// WithModel sets the chat model. Default is DefaultOpenAIModel.
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithOpenAIBaseURL targets an OpenAI-compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *openAIConfig) { c.httpClient = hc }
}

// NewOpenAISummarizer creates a summarizer that calls OpenAI directly.
func NewOpenAISummarizer(apiKey string, opts ...OpenAIOption) *OpenAISummarizer {
	cfg := openAIConfig{model: DefaultOpenAIModel}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.httpClient))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAISummarizer{client: &client, model: cfg.model}
}

// Summarize wraps the conversation in the clinical prompt and returns the
// model's reply. Failure kinds: network (no response), http-status (API
// error), empty-response (no content in the reply).
func (s *OpenAISummarizer) Summarize(ctx context.Context, conversation string) (string, error) {
	if strings.TrimSpace(conversation) == "" {
		return "", ErrNoConversation
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(summaryPrompt, conversation)),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &Error{
				Op:         "summarize",
				Kind:       KindHTTPStatus,
				HTTPStatus: apierr.StatusCode,
				Msg:        "openai api error",
				Err:        err,
			}
		}
		return "", &Error{Op: "summarize", Kind: KindNetwork, Msg: "openai request failed", Err: err}
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &Error{Op: "summarize", Kind: KindEmptyResponse, Msg: "openai reply has no content"}
	}
	return resp.Choices[0].Message.Content, nil
}
