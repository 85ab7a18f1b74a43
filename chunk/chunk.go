// Package chunk splits extracted document text into overlapping windows.
package chunk

const (
	DefaultWindowSize = 1000
	DefaultOverlap    = 200
)

type Config struct {
	WindowSize int `yaml:"windowSize"`
	Overlap    int `yaml:"overlap"`
}

// Normalize applies the defaults and keeps the overlap strictly below the
// window size so that every window advances.
func (cfg Config) Normalize() Config {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize

		if cfg.Overlap == 0 {
			cfg.Overlap = DefaultOverlap
		}
	}

	if cfg.Overlap < 0 || cfg.Overlap >= cfg.WindowSize {
		cfg.Overlap = cfg.WindowSize / 4
	}

	return cfg
}

// Split returns windows of at most windowSize characters. Each window after
// the first starts windowSize-overlap characters after the previous one and
// the last window ends exactly at the end of text. Empty text yields no
// windows.
func Split(text string, windowSize, overlap int) []string {
	cfg := Config{WindowSize: windowSize, Overlap: overlap}.Normalize()

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	if len(runes) <= cfg.WindowSize {
		return []string{text}
	}

	step := cfg.WindowSize - cfg.Overlap

	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := start + cfg.WindowSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

// Splitter binds a configuration to Split.
type Splitter struct {
	cfg Config
}

func NewSplitter(cfg Config) *Splitter {
	return &Splitter{cfg.Normalize()}
}

func (s *Splitter) Split(text string) []string {
	return Split(text, s.cfg.WindowSize, s.cfg.Overlap)
}

func (s *Splitter) Config() Config {
	return s.cfg
}
