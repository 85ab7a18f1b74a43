package docqa

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/docqa/chunk"
	"github.com/flarexio/docqa/embed"
	"github.com/flarexio/docqa/llm"
	"github.com/flarexio/docqa/vector"
)

var (
	ErrQuestionRequired   = errors.New("please provide a question")
	ErrNameRequired       = errors.New("please provide a filename")
	ErrNoFiles            = errors.New("no files uploaded")
	ErrTooManyFiles       = errors.New("too many files in one upload")
	ErrFileTooLarge       = errors.New("file too large")
	ErrCapacityExceeded   = errors.New("file upload limit exceeded")
	ErrUnsupportedFormat  = errors.New("unsupported file type")
	ErrExtractionFailed   = errors.New("no text extracted")
	ErrEmbeddingFailed    = errors.New("embedding failed")
	ErrDocumentNotFound   = errors.New("file not found in memory")
	ErrBatchNotFound      = errors.New("upload batch not found")
	ErrTimeout            = errors.New("response timed out")
	ErrReservationSpent   = errors.New("reservation has no remaining slots")
	ErrServiceClosed      = errors.New("service closed")
	ErrInvalidRequestType = errors.New("invalid request type")
)

const (
	DefaultTopK          = 3
	DefaultContextBudget = 1200
	DefaultCapacity      = 5
	DefaultMaxFiles      = 5
	DefaultMaxFileSize   = 20 << 20
	DefaultAnswerTimeout = 5 * time.Minute
	DefaultStatusHistory = 128

	FallbackAnswer = "I don't know."
)

type Config struct {
	Chunk    chunk.Config  `yaml:"chunk"`
	Vector   vector.Config `yaml:"vector"`
	Embedder embed.Config  `yaml:"embedder"`
	LLM      llm.Config    `yaml:"llm"`

	TopK          int      `yaml:"topK"`
	ContextBudget int      `yaml:"contextBudget"`
	Capacity      int      `yaml:"capacity"`
	MaxFiles      int      `yaml:"maxFiles"`
	MaxFileSize   int64    `yaml:"maxFileSize"`
	AnswerTimeout Duration `yaml:"answerTimeout"`
	StatusHistory int      `yaml:"statusHistory"`
}

// Normalize fills every unset field with its default.
func (cfg Config) Normalize() Config {
	cfg.Chunk = cfg.Chunk.Normalize()

	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = vector.BackendMemory
	}

	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = embed.DefaultOllamaModel
	}

	if cfg.Embedder.CacheSize <= 0 {
		cfg.Embedder.CacheSize = embed.DefaultCacheSize
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = llm.DefaultOllamaModel
	}

	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}

	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}

	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}

	if cfg.AnswerTimeout <= 0 {
		cfg.AnswerTimeout = Duration(DefaultAnswerTimeout)
	}

	if cfg.StatusHistory <= 0 {
		cfg.StatusHistory = DefaultStatusHistory
	}

	return cfg
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// FormatOf derives the document format from a file name's extension.
func FormatOf(name string) Format {
	ext := strings.ToLower(filepath.Ext(name))
	return Format(strings.TrimPrefix(ext, "."))
}

// Extractor turns the raw bytes of one format into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// LanguageModel completes a prompt. Implementations should honour ctx, but
// callers must not rely on it to stop an abandoned call.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// File is one uploaded document. Name is also the registry key.
type File struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

type State string

const (
	StateReceived    State = "received"
	StateExtracting  State = "extracting"
	StateChunking    State = "chunking"
	StateEmbedding   State = "embedding"
	StateRegistering State = "registering"
	StateRegistered  State = "registered"
	StateFailed      State = "failed"
)

func (s State) Terminal() bool {
	return s == StateRegistered || s == StateFailed
}

// Outcome reports what happened to one file of an upload batch.
type Outcome struct {
	File     string `json:"file"`
	State    State  `json:"state"`
	FailedAt State  `json:"failed_at,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
	Error    string `json:"error,omitempty"`
}

type UploadReceipt struct {
	BatchID  string   `json:"batch_id"`
	Accepted []string `json:"accepted"`
}

type BatchStatus struct {
	BatchID    string    `json:"batch_id"`
	ReceivedAt time.Time `json:"received_at"`
	Done       bool      `json:"done"`
	Registered int       `json:"registered"`
	Files      []Outcome `json:"files"`
}
