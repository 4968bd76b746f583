// Package videometa reads the title and channel of a video page so saved
// gallery cards can carry them. Lookups are best effort.
package videometa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const maxPageBytes = 4 << 20

// Meta is what a page says about its video.
type Meta struct {
	Title   string
	Channel string
}

// Empty reports whether nothing was found.
func (m Meta) Empty() bool {
	return m.Title == "" && m.Channel == ""
}

// Fetcher downloads and parses video pages.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher returns a Fetcher using client, or a client with a short timeout
// when client is nil.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger}
}

// Lookup fetches pageURL and extracts its metadata.
func (f *Fetcher) Lookup(ctx context.Context, pageURL string) (Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "larder/1.0")
	req.Header.Set("Accept-Language", "en")

	resp, err := f.client.Do(req)
	if err != nil {
		return Meta{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Meta{}, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	meta, err := Parse(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return Meta{}, err
	}
	f.logger.Debug("video metadata", "url", pageURL, "title", meta.Title, "channel", meta.Channel)
	return meta, nil
}

// Parse extracts metadata from an HTML document, decoding it to UTF-8 per
// contentType and any <meta charset> it declares. An empty body yields an
// empty Meta.
func Parse(r io.Reader, contentType string) (Meta, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if errors.Is(err, io.EOF) {
		return Meta{}, nil
	}
	if err != nil {
		return Meta{}, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return Meta{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
		title = strings.TrimSpace(strings.TrimSuffix(title, "- YouTube"))
	}

	channel := strings.TrimSpace(doc.Find(`[itemprop="author"] link[itemprop="name"]`).AttrOr("content", ""))
	if channel == "" {
		channel = strings.TrimSpace(doc.Find(`meta[name="author"]`).AttrOr("content", ""))
	}

	return Meta{Title: title, Channel: channel}, nil
}
