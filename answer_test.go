package docqa

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docqa/persistence/memory"
	"github.com/flarexio/docqa/vector"
)

func TestBuildPromptPriority(t *testing.T) {
	tests := []struct {
		question string
		intent   Intent
		prefix   string
	}{
		{"Give me some questions to summarize", IntentQuestions, "Generate 5 important questions"},
		{"What are the important points? Please summarize", IntentKeyPoints, "Extract the most important points"},
		{"Can you SUMMARIZE this?", IntentSummary, "Summarize this document"},
		{"give me the gist", IntentAnswer, "Context:"},
		{"questions about the author", IntentAnswer, "Context:"},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			assert := assert.New(t)

			intent, prompt := BuildPrompt(tc.question, "some context")
			assert.Equal(tc.intent, intent)
			assert.True(strings.HasPrefix(prompt, tc.prefix), prompt)
			assert.Contains(prompt, "some context")
			assert.Contains(prompt, tc.question)
		})
	}
}

func TestBuildPromptWithoutContext(t *testing.T) {
	assert := assert.New(t)

	intent, prompt := BuildPrompt("Who wrote Hamlet?", "")
	assert.Equal(IntentAnswer, intent)
	assert.Equal("Answer using your general knowledge:\n\nQuestion: Who wrote Hamlet?", prompt)

	intent, prompt = BuildPrompt("summarize it", "")
	assert.Equal(IntentSummary, intent)
	assert.Contains(prompt, NoDocumentPlaceholder)
}

func TestJoinContext(t *testing.T) {
	assert := assert.New(t)

	results := []vector.Result{
		{Chunk: vector.Chunk{Content: "first"}},
		{Chunk: vector.Chunk{Content: "second"}},
	}

	assert.Equal("first\n\nsecond", JoinContext(results, 1200))
	assert.Equal("first\n\nse", JoinContext(results, 9))
	assert.Equal("", JoinContext(nil, 1200))

	long := []vector.Result{
		{Chunk: vector.Chunk{Content: strings.Repeat("a", 1000)}},
		{Chunk: vector.Chunk{Content: strings.Repeat("b", 1000)}},
	}
	assert.Len(JoinContext(long, 1200), 1200)
}

func newTestAnswerer(registry *Registry, model LanguageModel, timeout time.Duration) *Answerer {
	cfg := Config{
		AnswerTimeout: Duration(timeout),
	}

	return NewAnswerer(cfg, registry, &letterEmbedder{}, model)
}

func TestAnswerSummarizeUsesDocumentContext(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	registry := NewRegistry(5)

	idx, err := memory.NewBuilder().Build(ctx, "fruit.txt", []string{
		"apples are red",
		"bananas are yellow",
	}, &letterEmbedder{})

	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.NoError(registry.TryRegister("fruit.txt", idx))

	model := &recordingModel{reply: "  Fruit comes in colours.  \n"}
	a := newTestAnswerer(registry, model, time.Second)

	answer, err := a.Answer(ctx, "Please summarize", "fruit.txt")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("Fruit comes in colours.", answer)

	prompt := model.lastPrompt()
	assert.True(strings.HasPrefix(prompt, "Summarize this document"))
	assert.Contains(prompt, "apples are red")
	assert.Contains(prompt, "bananas are yellow")
	assert.NotContains(prompt, NoDocumentPlaceholder)
}

func TestAnswerWithoutDocumentUsesGeneralKnowledge(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	registry := NewRegistry(5)
	registry.TryRegister("other.txt", &stubIndex{})

	model := &recordingModel{reply: "Paris"}
	a := newTestAnswerer(registry, model, time.Second)

	for _, target := range []string{"", "unknown.txt"} {
		answer, err := a.Answer(ctx, "What is the capital of France?", target)
		assert.NoError(err)
		assert.Equal("Paris", answer)
		assert.Equal("Answer using your general knowledge:\n\nQuestion: What is the capital of France?", model.lastPrompt())
	}
}

func TestAnswerFallback(t *testing.T) {
	assert := assert.New(t)

	a := newTestAnswerer(NewRegistry(5), &recordingModel{reply: " \n\t "}, time.Second)

	answer, err := a.Answer(context.Background(), "anything?", "")
	assert.NoError(err)
	assert.Equal(FallbackAnswer, answer)
}

func TestAnswerRequiresQuestion(t *testing.T) {
	assert := assert.New(t)

	model := &recordingModel{}
	a := newTestAnswerer(NewRegistry(5), model, time.Second)

	_, err := a.Answer(context.Background(), "   ", "")
	assert.ErrorIs(err, ErrQuestionRequired)
	assert.Empty(model.prompts)
}

func TestAnswerTimeout(t *testing.T) {
	assert := assert.New(t)

	model := newStuckModel()
	defer close(model.release)

	timeout := 100 * time.Millisecond
	a := newTestAnswerer(NewRegistry(5), model, timeout)

	start := time.Now()
	_, err := a.Answer(context.Background(), "slow question", "")
	elapsed := time.Since(start)

	assert.ErrorIs(err, ErrTimeout)
	assert.GreaterOrEqual(elapsed, timeout)
	assert.Less(elapsed, timeout+time.Second)
}

func TestAnswerCallerCancellation(t *testing.T) {
	assert := assert.New(t)

	model := newStuckModel()
	defer close(model.release)

	a := newTestAnswerer(NewRegistry(5), model, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-model.started
		cancel()
	}()

	_, err := a.Answer(ctx, "never mind", "")
	assert.ErrorIs(err, context.Canceled)
}
