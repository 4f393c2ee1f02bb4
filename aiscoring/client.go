// Package aiscoring rates photos with an external vision-language model.
//
// The model receives the image and a fixed prompt and answers with a JSON
// object in the same score shape the local feature extractor produces, plus
// a composition score. Every failure degrades the photo instead of the run.
package aiscoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photocull/config"
)

// VisionClient abstracts one multimodal chat call
type VisionClient interface {
	Chat(ctx context.Context, prompt string, images [][]byte) (string, error)
}

const maxResponseBytes = 4 << 20

// OllamaClient talks to an Ollama-compatible /api/chat endpoint
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message *chatMessage `json:"message"`
	Error   string       `json:"error,omitempty"`
}

// NewOllamaClient creates a client for the endpoint and model in cfg
func NewOllamaClient(cfg config.AIConfig) *OllamaClient {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Model returns the model name sent with every request
func (c *OllamaClient) Model() string {
	return c.model
}

// Chat sends prompt and images as one non-streaming user message and returns
// the assistant's text
func (c *OllamaClient) Chat(ctx context.Context, prompt string, images [][]byte) (string, error) {
	encoded := make([]string, 0, len(images))
	for _, img := range images {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(img))
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: prompt,
			Images:  encoded,
		}},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat endpoint returned %s: %s", resp.Status, truncate(string(data), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("chat endpoint error: %s", out.Error)
	}
	if out.Message == nil {
		return "", errors.New("chat response has no message")
	}

	return out.Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
