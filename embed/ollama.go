package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
	DefaultMaxRetries  = 2
)

var ErrNoEmbedding = errors.New("no embedding returned")

type Config struct {
	Host       string `yaml:"host"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"maxRetries"`
	CacheSize  int    `yaml:"cacheSize"`
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaEmbedder calls Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	client *http.Client
	cfg    Config
}

func NewOllamaEmbedder(cfg Config) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}

	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	cfg.Host = strings.TrimSuffix(cfg.Host, "/")

	// No client timeout; callers bound requests through the context.
	return &OllamaEmbedder{
		client: &http.Client{},
		cfg:    cfg,
	}
}

func (e *OllamaEmbedder) ModelName() string {
	return e.cfg.Model
}

// Embed retries transient failures with a doubling backoff.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	delay := 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			delay *= 2
		}

		v, retry, err := e.embed(ctx, text)
		if err == nil {
			return v, nil
		}

		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, bool, error) {
	body, err := json.Marshal(&ollamaEmbedRequest{
		Model: e.cfg.Model,
		Input: text,
	})

	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("ollama embed: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		return nil, resp.StatusCode >= 500, err
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, err
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, false, ErrNoEmbedding
	}

	return result.Embeddings[0], false, nil
}
