// Package llm holds language model clients used to generate answers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3"
)

type Config struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaClient completes prompts through Ollama's /api/generate endpoint.
type OllamaClient struct {
	client *http.Client
	cfg    Config
}

func NewOllamaClient(cfg Config) *OllamaClient {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}

	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}

	cfg.Host = strings.TrimSuffix(cfg.Host, "/")

	return &OllamaClient{
		client: &http.Client{},
		cfg:    cfg,
	}
}

func (c *OllamaClient) ModelName() string {
	return c.cfg.Model
}

// Generate returns the raw completion for prompt. The request is bound to
// ctx; generation time is enforced by the caller.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(&generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
	})

	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama generate: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Response, nil
}
