package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// FileLoader reads plain text or markdown notes.
type FileLoader struct{}

func (FileLoader) Load(_ context.Context, source string) (*Reference, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", source, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file %s is not UTF-8 text", source)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("file %s is empty", source)
	}
	return &Reference{
		Kind:      SourceText,
		Title:     strings.TrimLeft(titleFromText(text, 80), "# "),
		Source:    filepath.Base(source),
		Text:      text,
		WordCount: wordCount(text),
	}, nil
}

// PDFLoader extracts the plain text layer of a PDF.
type PDFLoader struct{}

func (PDFLoader) Load(ctx context.Context, source string) (*Reference, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("could not read PDF %s: %w", source, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // unreadable page
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		// Only the excerpt is used, so stop once there is plenty.
		if sb.Len() > NotesLimit*8 {
			break
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("could not extract text from PDF %s (it may be scanned or image-based)", source)
	}
	return &Reference{
		Kind:      SourcePDF,
		Title:     titleFromText(text, 80),
		Source:    filepath.Base(source),
		Text:      text,
		WordCount: wordCount(text),
	}, nil
}
