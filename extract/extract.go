// Package extract turns uploaded file bytes into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/flarexio/docqa"
)

var ErrInvalidDocument = errors.New("invalid document")

// Defaults returns the extractors for every supported format.
func Defaults() map[docqa.Format]docqa.Extractor {
	return map[docqa.Format]docqa.Extractor{
		docqa.FormatTXT:  NewTextExtractor(),
		docqa.FormatDOCX: NewDocxExtractor(),
		docqa.FormatPDF:  NewPDFExtractor(nil),
	}
}

type textExtractor struct{}

func NewTextExtractor() docqa.Extractor {
	return &textExtractor{}
}

func (e *textExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}

	return string(data), nil
}

type docxExtractor struct{}

func NewDocxExtractor() docqa.Extractor {
	return &docxExtractor{}
}

func (e *docxExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", ErrInvalidDocument
	}

	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", ErrInvalidDocument
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", ErrInvalidDocument
		}

		return parseDocumentXML(content)
	}

	return "", nil
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", ErrInvalidDocument
	}

	var sb strings.Builder
	for i, p := range doc.Body.Paragraphs {
		if i > 0 {
			sb.WriteString("\n")
		}

		for _, r := range p.Runs {
			for _, t := range r.Text {
				sb.WriteString(t.Content)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// CommandRunner runs an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type pdfExtractor struct {
	runner CommandRunner
}

// NewPDFExtractor extracts PDF text with poppler's pdftotext. A nil runner
// executes the real binary.
func NewPDFExtractor(runner CommandRunner) docqa.Extractor {
	if runner == nil {
		runner = execRunner{}
	}

	return &pdfExtractor{runner}
}

func (e *pdfExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", ErrInvalidDocument
	}

	f, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", f.Name(), "-")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
