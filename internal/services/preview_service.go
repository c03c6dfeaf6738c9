package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/markusmobius/go-trafilatura"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	previewUserAgent     = "TribeHub-Bot/1.0 (+https://tribehub.example.com/bot)"
	previewMaxBodySize   = 5 * 1024 * 1024 // 5MB
	previewMaxConcurrent = 10
	previewGlobalRate    = 10.0 // requests per second
	previewSnippetLength = 500
)

// LinkPreview is the extracted summary of an external playbook link.
type LinkPreview struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// PreviewService fetches external pages referenced by task playbooks and
// extracts a title, snippet, and lead image for display on cards.
type PreviewService struct {
	client        *PreviewClient
	rateLimiter   *PreviewRateLimiter
	robotsChecker *RobotsChecker
	previewCache  *cache.Cache
	semaphore     chan struct{}
	log           *logrus.Entry
}

var (
	previewInstance *PreviewService
	previewOnce     sync.Once
)

// GetPreviewService returns the singleton preview service instance
func GetPreviewService() *PreviewService {
	previewOnce.Do(func() {
		previewInstance = &PreviewService{
			client:        NewPreviewClient(previewUserAgent),
			rateLimiter:   NewPreviewRateLimiter(previewGlobalRate),
			robotsChecker: NewRobotsChecker(previewUserAgent),
			previewCache:  cache.New(6*time.Hour, 30*time.Minute),
			semaphore:     make(chan struct{}, previewMaxConcurrent),
			log:           logrus.WithField("component", "preview"),
		}

		previewInstance.log.Infof("Service initialized: max_concurrent=%d, global_rate=%.1f req/s",
			previewMaxConcurrent, previewGlobalRate)
	})
	return previewInstance
}

// FetchPreview fetches a URL and returns its extracted preview.
func (s *PreviewService) FetchPreview(ctx context.Context, urlStr, tenantID string) (*LinkPreview, error) {
	startTime := time.Now()

	if err := s.validateURL(urlStr); err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	domain := parsedURL.Host

	// Check cache
	if cached, found := s.previewCache.Get(urlStr); found {
		s.log.WithField("url", urlStr).Debug("Cache hit")
		return cached.(*LinkPreview), nil
	}

	// Check robots.txt
	allowed, crawlDelay, err := s.robotsChecker.CanFetch(ctx, urlStr)
	if err != nil {
		s.log.WithField("url", urlStr).Warnf("Failed to check robots.txt: %v", err)
		crawlDelay = 1 * time.Second
	}
	if !allowed {
		return nil, fmt.Errorf("access blocked by robots.txt for: %s", urlStr)
	}

	// Rate limiting
	if err := s.rateLimiter.Wait(ctx, tenantID, domain, crawlDelay); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	// Concurrency cap
	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for slot: %w", ctx.Err())
	}

	resp, err := s.client.Get(ctx, urlStr)
	if err != nil {
		s.log.WithField("url", urlStr).Errorf("Fetch failed: %v", err)
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, previewMaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL: parsedURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}
	if result == nil || (result.ContentText == "" && result.Metadata.Title == "") {
		return nil, fmt.Errorf("no content extracted from page")
	}

	snippet := strings.TrimSpace(result.ContentText)
	if len(snippet) > previewSnippetLength {
		snippet = snippet[:previewSnippetLength] + "…"
	}

	title := result.Metadata.Title
	if title == "" {
		title = domain
	}

	preview := &LinkPreview{
		Title: title,
		Text:  snippet,
		Image: result.Metadata.Image,
	}

	s.previewCache.Set(urlStr, preview, cache.DefaultExpiration)

	s.log.WithFields(logrus.Fields{
		"url":        urlStr,
		"latency_ms": time.Since(startTime).Milliseconds(),
	}).Info("Preview extracted")

	return preview, nil
}

// validateURL checks if the URL is safe to fetch (SSRF protection)
func (s *PreviewService) validateURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("only HTTP/HTTPS URLs are supported, got: %s", parsedURL.Scheme)
	}

	hostname := strings.ToLower(parsedURL.Hostname())

	if hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1" {
		return fmt.Errorf("localhost URLs are not allowed")
	}

	// Block private IP ranges
	privateRanges := []string{
		"192.168.", "10.", "172.16.", "172.17.", "172.18.", "172.19.",
		"172.20.", "172.21.", "172.22.", "172.23.", "172.24.", "172.25.",
		"172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"169.254.", // Link-local
		"fd",       // IPv6 private
	}

	for _, prefix := range privateRanges {
		if strings.HasPrefix(hostname, prefix) {
			return fmt.Errorf("private IP addresses are not allowed")
		}
	}

	return nil
}
