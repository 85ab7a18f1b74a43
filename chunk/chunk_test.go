package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitShortText(t *testing.T) {
	assert := assert.New(t)

	text := "a short document"

	chunks := Split(text, 1000, 200)
	assert.Equal([]string{text}, chunks)

	exact := strings.Repeat("x", 1000)
	assert.Equal([]string{exact}, Split(exact, 1000, 200))
}

func TestSplitEmptyText(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(Split("", 1000, 200))
}

func TestSplitOverlap(t *testing.T) {
	assert := assert.New(t)

	var sb strings.Builder
	for i := 0; i < 2345; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := Split(text, 1000, 200)
	assert.Len(chunks, 3)

	for i, c := range chunks {
		assert.LessOrEqual(len(c), 1000)

		if i > 0 {
			prev := chunks[i-1]
			assert.Equal(prev[len(prev)-200:], c[:200], "chunk %d should overlap the previous one", i)
		}
	}

	assert.True(strings.HasSuffix(text, chunks[len(chunks)-1]))
	assert.Equal(text[1600:], chunks[2])
}

func TestSplitDoesNotEmitTrailingWindow(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("y", 1800)

	chunks := Split(text, 1000, 200)
	assert.Len(chunks, 2)
	assert.Len(chunks[1], 1000)
}

func TestSplitCountsRunes(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("é", 15)

	chunks := Split(text, 10, 5)
	assert.Equal([]string{strings.Repeat("é", 10), strings.Repeat("é", 10)}, chunks)
}

func TestSplitIsDeterministic(t *testing.T) {
	assert := assert.New(t)

	text := strings.Repeat("deterministic ", 300)
	assert.Equal(Split(text, 100, 20), Split(text, 100, 20))
}

func TestConfigNormalize(t *testing.T) {
	assert := assert.New(t)

	cfg := Config{}.Normalize()
	assert.Equal(DefaultWindowSize, cfg.WindowSize)
	assert.Equal(DefaultOverlap, cfg.Overlap)

	cfg = Config{WindowSize: 100, Overlap: 100}.Normalize()
	assert.Equal(25, cfg.Overlap)

	cfg = NewSplitter(Config{WindowSize: 1000, Overlap: 200}).Config()
	assert.Equal(Config{WindowSize: 1000, Overlap: 200}, cfg)
}
