package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docqa"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestTextExtractor(t *testing.T) {
	assert := assert.New(t)

	text, err := NewTextExtractor().Extract(context.Background(), []byte("plain text"))
	assert.NoError(err)
	assert.Equal("plain text", text)

	text, err = NewTextExtractor().Extract(context.Background(), []byte{'o', 'k', 0xff})
	assert.NoError(err)
	assert.Equal("ok�", text)
}

func TestDocxExtractor(t *testing.T) {
	assert := assert.New(t)

	data := buildDocx(t, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := NewDocxExtractor().Extract(context.Background(), data)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("Hello world\nSecond paragraph", text)
}

func TestDocxExtractorRejectsNonZip(t *testing.T) {
	assert := assert.New(t)

	_, err := NewDocxExtractor().Extract(context.Background(), []byte("not a zip"))
	assert.ErrorIs(err, ErrInvalidDocument)
}

type mockRunner struct {
	name   string
	args   []string
	output []byte
	err    error
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func TestPDFExtractor(t *testing.T) {
	assert := assert.New(t)

	runner := &mockRunner{output: []byte("page one\n")}

	text, err := NewPDFExtractor(runner).Extract(context.Background(), []byte("%PDF-1.7 ..."))
	assert.NoError(err)
	assert.Equal("page one\n", text)
	assert.Equal("pdftotext", runner.name)
	assert.Equal("-", runner.args[len(runner.args)-1])
}

func TestPDFExtractorErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := NewPDFExtractor(&mockRunner{}).Extract(context.Background(), []byte("hello"))
	assert.ErrorIs(err, ErrInvalidDocument)

	failure := errors.New("pdftotext: not found")
	_, err = NewPDFExtractor(&mockRunner{err: failure}).Extract(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(err, failure)
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)

	extractors := Defaults()
	assert.Len(extractors, 3)
	assert.Contains(extractors, docqa.FormatPDF)
	assert.Contains(extractors, docqa.FormatDOCX)
	assert.Contains(extractors, docqa.FormatTXT)
}
