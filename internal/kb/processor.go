// Package kb builds knowledge articles from web pages and seed files.
package kb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"salesbot/internal/domain"
)

const maxPageSize = 2 << 20 // 2MB

// Processor turns a source URL into article text: fetch the page, strip it
// to visible text, optionally run a cleanup pass through the model.
type Processor struct {
	client     *http.Client
	completer  domain.Completer
	llmCleanup bool
	model      string
	logger     *slog.Logger
}

type ProcessorConfig struct {
	FetchTimeout time.Duration
	Completer    domain.Completer // required only when LLMCleanup is set
	LLMCleanup   bool
	Model        string
	Logger       *slog.Logger
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Processor{
		client:     &http.Client{Timeout: cfg.FetchTimeout},
		completer:  cfg.Completer,
		llmCleanup: cfg.LLMCleanup,
		model:      cfg.Model,
		logger:     cfg.Logger,
	}
}

// Extract fetches the article's URL and returns the page's visible text.
func (p *Processor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "salesbot/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	text, err := visibleText(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}
	if text == "" {
		return "", fmt.Errorf("no text content at %s", pageURL)
	}

	if p.llmCleanup && p.completer != nil {
		cleaned, err := p.cleanup(ctx, text)
		if err != nil {
			// Raw extraction is still usable; cleanup failure is not fatal.
			p.logger.Warn("article cleanup failed, keeping raw text", "url", pageURL, "err", err)
			return text, nil
		}
		return cleaned, nil
	}
	return text, nil
}

const cleanupPrompt = "Limpia el siguiente texto extraído de una página web. Elimina menús, " +
	"avisos legales y texto de navegación. Conserva únicamente el contenido informativo, " +
	"en español, sin agregar nada."

func (p *Processor) cleanup(ctx context.Context, text string) (string, error) {
	out, err := p.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.PromptMessage{
			{Role: "system", Content: cleanupPrompt},
			{Role: "user", Content: text},
		},
		Model:       p.model,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", domain.ErrEmptyCompletion
	}
	return out, nil
}

// skipElements are subtrees that never contain article text.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "header": true, "footer": true, "iframe": true,
}

// visibleText walks the HTML tree and collects text nodes, one line per
// block, collapsing runs of whitespace.
func visibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(lines, "\n"), nil
}
