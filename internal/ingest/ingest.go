// Package ingest loads reference material (a web article, a PDF or a text
// file) and condenses it into notes the prompts can quote.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
)

type SourceKind string

const (
	SourceURL  SourceKind = "url"
	SourcePDF  SourceKind = "pdf"
	SourceText SourceKind = "text"

	// maxInputSize is the maximum allowed size for input content (25 MB).
	maxInputSize = 25 * 1024 * 1024

	// NotesLimit is the character budget for reference notes in a prompt.
	NotesLimit = 4000
)

// Reference is extracted source material.
type Reference struct {
	Kind      SourceKind
	Title     string
	Source    string
	Text      string
	WordCount int
}

// Notes returns the excerpt that goes into Request.SourceNotes.
func (r *Reference) Notes() string {
	body := Excerpt(r.Text, NotesLimit)
	if r.Title == "" || strings.HasPrefix(body, r.Title) {
		return body
	}
	return Excerpt(r.Title+"\n"+body, NotesLimit)
}

// Loader extracts a Reference from one kind of source.
type Loader interface {
	Load(ctx context.Context, source string) (*Reference, error)
}

func DetectSource(input string) SourceKind {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return SourceURL
	}
	if strings.HasSuffix(strings.ToLower(input), ".pdf") {
		return SourcePDF
	}
	return SourceText
}

// LoaderFor picks the loader for input.
func LoaderFor(input string) Loader {
	switch DetectSource(input) {
	case SourceURL:
		return &WebLoader{}
	case SourcePDF:
		return PDFLoader{}
	default:
		return FileLoader{}
	}
}

// Load extracts reference material from a URL, a PDF or a text file.
func Load(ctx context.Context, source string) (*Reference, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("reference source is empty")
	}
	return LoaderFor(source).Load(ctx, source)
}

// Excerpt collapses whitespace in text and cuts it to at most limit runes,
// preferring to end on a sentence or word boundary.
func Excerpt(text string, limit int) string {
	text = strings.Join(strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\f' || r == '\v' || r == 0xa0
	}), " ")
	text = collapseBlankLines(text)

	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, ".!?\n"); i > len(cut)/2 {
		return strings.TrimSpace(cut[:i+1])
	}
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		return strings.TrimSpace(cut[:i]) + "…"
	}
	return cut
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func titleFromText(text string, maxLen int) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > maxLen {
		line = string(r[:maxLen]) + "..."
	}
	if line == "" {
		return "Untitled"
	}
	return line
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxInputSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxInputSize/(1024*1024))
	}
	return nil
}
