// Package gemini talks to the Gemini API through the official genai client
// as an alternative summary transport.
package gemini

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/gitsquash/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent is the Gemini-backed AgentAPI transport.
type Agent struct {
	client *genai.Client
	cfg    model.ModelConfig
}

// New builds the genai client, routing through the configured proxy when
// one is set. With IsTest set it sends a one-token ping so a bad key fails
// at startup.
func New(ctx context.Context, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, erro.New("Gemini API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)

	transport := &http.Transport{}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, erro.Wrap(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		return nil, erro.Wrap(err, "failed to create Gemini client")
	}

	a := &Agent{client: client, cfg: cfg}
	if cfg.IsTest {
		if err := a.ping(ctx); err != nil {
			return nil, erro.Wrap(err, "failed to connect to Gemini API")
		}
	}
	return a, nil
}

// CallAPI sends one prompt with a system instruction.
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	result, err := a.client.Models.GenerateContent(ctx,
		a.cfg.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType:  lang.Check(req.ResponseType, "text/plain"),
			Temperature:       &req.Temperature,
			MaxOutputTokens:   int32(req.MaxTokens),
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}},
		},
	)
	if err != nil {
		return model.APIResponse{}, classifyError(err)
	}

	var content string
	if len(result.Candidates) > 0 {
		candidate := result.Candidates[0]
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			content = candidate.Content.Parts[0].Text
		}
	}

	return model.APIResponse{
		CreateTime:       result.CreateTime,
		Content:          content,
		PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
	}, nil
}

// classifyError maps the genai client's stringly errors to readable ones.
func classifyError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "location is not supported"):
		return erro.New("region not supported by Gemini API")
	case strings.Contains(msg, "429"):
		return erro.New("rate limit exceeded")
	case strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return erro.New("authentication failed")
	case strings.Contains(msg, "400"):
		return erro.New("bad request to Gemini API")
	case strings.Contains(msg, "503"):
		return erro.New("Gemini API service unavailable")
	case strings.Contains(msg, "500") || strings.Contains(msg, "502"):
		return erro.New("Gemini API server error")
	default:
		return erro.Wrap(err, "Gemini API error")
	}
}

func (a *Agent) ping(ctx context.Context) error {
	_, err := a.CallAPI(ctx, model.APIRequest{
		Prompt:      "Respond with 'OK' if you can understand this message.",
		MaxTokens:   10,
		Temperature: 0.5,
	})
	return err
}
