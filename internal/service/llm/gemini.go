package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Gemini is a Client for the Google Generative Language REST API.
type Gemini struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini client. baseURL is the API root without a
// trailing slash, e.g. https://generativelanguage.googleapis.com/v1beta.
func NewGemini(apiKey, baseURL string, client *http.Client) *Gemini {
	if client == nil {
		client = &http.Client{}
	}
	return &Gemini{apiKey: apiKey, baseURL: baseURL, client: client}
}

// Name identifies the provider.
func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate calls models/{model}:generateContent and returns the first
// candidate's text.
func (g *Gemini) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}
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
		apiErr := fmt.Errorf("gemini API error: %d", resp.StatusCode)
		var ge geminiError
		if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
			apiErr = fmt.Errorf("gemini API error: %s", ge.Error.Message)
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

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient, Err: err}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Provider: g.Name(), Model: model, Kind: KindTransient,
			Err: fmt.Errorf("empty candidate list")}
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// parseRetryAfter handles the delta-seconds form of the Retry-After header.
// The HTTP-date form is rare enough from these providers to ignore.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
