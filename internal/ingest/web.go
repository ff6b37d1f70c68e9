package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// WebLoader fetches an article and keeps its readable text.
type WebLoader struct {
	// Client defaults to a client with a 30s timeout.
	Client *http.Client
}

func (w *WebLoader) Load(ctx context.Context, source string) (*Reference, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", source, err)
	}

	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", source, err)
	}
	req.Header.Set("User-Agent", "shortsmith/1.0 (+reference notes)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch URL %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch URL %s: HTTP %d", source, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxInputSize), parsed)
	if err != nil {
		return nil, fmt.Errorf("could not extract article from %s: %w", source, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable content extracted from %s", source)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = titleFromText(text, 80)
	}
	return &Reference{
		Kind:      SourceURL,
		Title:     title,
		Source:    source,
		Text:      text,
		WordCount: wordCount(text),
	}, nil
}
