package docqa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/docqa/vector"
)

type Intent string

const (
	IntentQuestions Intent = "questions"
	IntentKeyPoints Intent = "key_points"
	IntentSummary   Intent = "summary"
	IntentAnswer    Intent = "answer"
)

const NoDocumentPlaceholder = "No document provided. Use general knowledge."

type promptRule struct {
	intent Intent
	match  func(question string) bool
	build  func(excerpt, question string) string
}

// promptRules are evaluated in order against the lower-cased question; the
// first match wins and the last rule always matches.
var promptRules = []promptRule{
	{
		intent: IntentQuestions,
		match: func(q string) bool {
			return strings.Contains(q, "give") && strings.Contains(q, "questions")
		},
		build: func(excerpt, question string) string {
			return "Generate 5 important questions based on this document:\n\n" +
				orPlaceholder(excerpt) + "\n\nRequest: " + question
		},
	},
	{
		intent: IntentKeyPoints,
		match: func(q string) bool {
			return strings.Contains(q, "important points")
		},
		build: func(excerpt, question string) string {
			return "Extract the most important points from this document:\n\n" +
				orPlaceholder(excerpt) + "\n\nRequest: " + question
		},
	},
	{
		intent: IntentSummary,
		match: func(q string) bool {
			return strings.Contains(q, "summarize")
		},
		build: func(excerpt, question string) string {
			return "Summarize this document in a concise way:\n\n" +
				orPlaceholder(excerpt) + "\n\nRequest: " + question
		},
	},
	{
		intent: IntentAnswer,
		match: func(string) bool {
			return true
		},
		build: func(excerpt, question string) string {
			if excerpt == "" {
				return "Answer using your general knowledge:\n\nQuestion: " + question
			}

			return "Context:\n" + excerpt + "\n\nQuestion: " + question +
				"\n\nAnswer concisely based on the given context. If the context is not helpful, answer using your general knowledge."
		},
	},
}

func orPlaceholder(excerpt string) string {
	if excerpt == "" {
		return NoDocumentPlaceholder
	}

	return excerpt
}

// BuildPrompt selects the prompt template for question and fills it in.
func BuildPrompt(question, excerpt string) (Intent, string) {
	q := strings.ToLower(question)

	for _, rule := range promptRules {
		if rule.match(q) {
			return rule.intent, rule.build(excerpt, question)
		}
	}

	// unreachable, the last rule always matches
	return IntentAnswer, question
}

// JoinContext concatenates retrieved chunk texts in rank order and truncates
// the result to budget characters.
func JoinContext(results []vector.Result, budget int) string {
	if len(results) == 0 {
		return ""
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}

	excerpt := strings.Join(texts, "\n\n")

	runes := []rune(excerpt)
	if budget > 0 && len(runes) > budget {
		excerpt = string(runes[:budget])
	}

	return excerpt
}

// Answerer builds answers from a registered document and the language model.
type Answerer struct {
	registry *Registry
	embedder vector.Embedder
	model    LanguageModel
	topK     int
	budget   int
	timeout  time.Duration
	log      *zap.Logger
}

func NewAnswerer(cfg Config, registry *Registry, embedder vector.Embedder, model LanguageModel) *Answerer {
	cfg = cfg.Normalize()

	return &Answerer{
		registry: registry,
		embedder: embedder,
		model:    model,
		topK:     cfg.TopK,
		budget:   cfg.ContextBudget,
		timeout:  cfg.AnswerTimeout.Duration(),
		log: zap.L().With(
			zap.String("service", "docqa"),
			zap.String("component", "answerer"),
		),
	}
}

// Answer answers question, grounded in target when it is registered. An
// unknown or empty target is not an error; the answer then relies on
// general knowledge only.
func (a *Answerer) Answer(ctx context.Context, question, target string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrQuestionRequired
	}

	excerpt, err := a.retrieve(ctx, question, target)
	if err != nil {
		return "", err
	}

	intent, prompt := BuildPrompt(question, excerpt)

	a.log.Debug("prompt built",
		zap.String("intent", string(intent)),
		zap.Int("context_length", len(excerpt)),
	)

	resp, err := a.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(resp)
	if answer == "" {
		return FallbackAnswer, nil
	}

	return answer, nil
}

func (a *Answerer) retrieve(ctx context.Context, question, target string) (string, error) {
	if target == "" {
		return "", nil
	}

	idx, ok := a.registry.Lookup(target)
	if !ok {
		return "", nil
	}

	query, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	results, err := idx.Search(ctx, query, a.topK)
	if err != nil {
		return "", err
	}

	return JoinContext(results, a.budget), nil
}

type generation struct {
	text string
	err  error
}

// generate races the language model against the answer timeout. When the
// timer wins, the call's context is cancelled and its result dropped; a
// model that ignores cancellation keeps running in the background until it
// returns on its own.
func (a *Answerer) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		text, err := a.model.Generate(callCtx, prompt)
		done <- generation{text, err}
	}()

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case g := <-done:
		return g.text, g.err

	case <-timer.C:
		return "", ErrTimeout

	case <-ctx.Done():
		return "", ctx.Err()
	}
}
