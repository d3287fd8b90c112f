package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GLM is a Client for the Zhipu GLM OpenAI-compatible chat completions API.
type GLM struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	temperature float64
	maxTokens   int
}

// NewGLM creates a GLM client. baseURL is the API root without a trailing
// slash, e.g. https://open.bigmodel.cn/api/paas/v4.
func NewGLM(apiKey, baseURL string, client *http.Client) *GLM {
	if client == nil {
		client = &http.Client{}
	}
	return &GLM{
		apiKey:      apiKey,
		baseURL:     baseURL,
		client:      client,
		temperature: 0.7,
		maxTokens:   4096,
	}
}

// Name identifies the provider.
func (g *GLM) Name() string { return "glm" }

type glmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type glmRequest struct {
	Model       string       `json:"model"`
	Messages    []glmMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type glmResponse struct {
	Choices []struct {
		Message glmMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate calls chat/completions with a single user message.
func (g *GLM) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(glmRequest{
		Model:       model,
		Messages:    []glmMessage{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("GLM API error: %d", resp.StatusCode)
		var out glmResponse
		if json.Unmarshal(raw, &out) == nil && out.Error != nil {
			apiErr = fmt.Errorf("GLM API error: %s", out.Error.Message)
		}
		return "", &Error{
			Provider:   g.Name(),
			Model:      model,
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        apiErr,
		}
	}

	var out glmResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}
	if len(out.Choices) == 0 {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient,
			Err: fmt.Errorf("empty choices list")}
	}
	return out.Choices[0].Message.Content, nil
}
