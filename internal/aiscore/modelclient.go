package aiscore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

const systemPrompt = `You are a web security assessor. Given structured scan
results for a website, respond with a JSON object:
{"score": <1-10>, "confidence": <0-1>, "summary": "<2-3 sentences>",
"recommendations": [{"title": "...", "detail": "...", "priority": "high|medium|low", "confidence": <0-1>}],
"explanations": {"<finding type>": "<plain-language explanation>"}}
Score 10 means excellent security posture, 1 means critically exposed.
Respond with JSON only.`

// modelClient speaks the OpenAI-compatible chat-completions protocol.
type modelClient struct {
	httpc  *resty.Client
	logger logging.Logger
}

func newModelClient(cfg Config, logger logging.Logger) *modelClient {
	httpc := resty.New()
	httpc.SetBaseURL(cfg.BaseURL)
	httpc.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	if cfg.Timeout > 0 {
		httpc.SetTimeout(cfg.Timeout)
	}
	return &modelClient{httpc: httpc, logger: logger}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// scorePayload is the JSON shape the model is asked to produce.
type scorePayload struct {
	Score           float64                `json:"score"`
	Confidence      float64                `json:"confidence"`
	Summary         string                 `json:"summary"`
	Recommendations []model.Recommendation `json:"recommendations"`
	Explanations    map[string]string      `json:"explanations"`
}

func (c *modelClient) complete(ctx context.Context, modelName string, in *Input) (*model.AIScore, error) {
	user, err := buildUserMessage(in)
	if err != nil {
		return nil, fmt.Errorf("encoding scan results: %w", err)
	}

	var out chatResponse
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: modelName,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: user},
			},
			ResponseFormat: responseFormat{Type: "json_object"},
			Temperature:    0.2,
		}).
		SetResult(&out).
		Post("/v1/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		if out.Error != nil {
			return nil, fmt.Errorf("%d from model api: %s", resp.StatusCode(), out.Error.Message)
		}
		return nil, fmt.Errorf("%d from model api", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("model response contained no choices")
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload scorePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("model returned unparseable JSON: %w", err)
	}
	if payload.Summary == "" {
		return nil, fmt.Errorf("model returned an empty summary")
	}

	return clampScore(&model.AIScore{
		Score:           payload.Score,
		Confidence:      payload.Confidence,
		Summary:         payload.Summary,
		Recommendations: payload.Recommendations,
		Explanations:    payload.Explanations,
		Model:           modelName,
	}), nil
}

// buildUserMessage serializes a compact view of the scan so prompts stay
// small: counts, scores and the findings themselves, never raw HTML.
func buildUserMessage(in *Input) (string, error) {
	view := map[string]any{
		"url":      in.URL,
		"counts":   in.Counts,
		"findings": in.Findings,
	}
	if in.Vulns != nil {
		view["vulnerability_score"] = in.Vulns.Score
	}
	if in.DeepSecurity != nil {
		view["deep_security_score"] = in.DeepSecurity.Score
		view["deep_security_categories"] = in.DeepSecurity.Categories
	}
	if in.VibeCheck != nil {
		view["vibe_score"] = in.VibeCheck.Score
	}
	if in.Copy != nil {
		view["copy_score"] = in.Copy.Score
		view["security_claims"] = in.Copy.SecurityClaims
	}
	if in.SEO != nil {
		view["seo_score"] = in.SEO.Score
	}
	if in.SecurityData != nil {
		view["tech_stack"] = in.SecurityData.TechStack
		view["uses_https"] = in.SecurityData.UsesHTTPS
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// modelStrategy is one model on the ladder.
type modelStrategy struct {
	client *modelClient
	model_ string
}

func (m *modelStrategy) Name() string { return "model:" + m.model_ }

func (m *modelStrategy) Attempt(ctx context.Context, in *Input) (*model.AIScore, error) {
	return m.client.complete(ctx, m.model_, in)
}
