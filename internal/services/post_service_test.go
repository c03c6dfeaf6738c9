package services

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Welcome\n\nHello **everyone**")
	if err != nil {
		t.Fatalf("Failed to render markdown: %v", err)
	}
	if !strings.Contains(html, "<h1") {
		t.Errorf("Expected heading in output, got %s", html)
	}
	if !strings.Contains(html, "<strong>everyone</strong>") {
		t.Errorf("Expected bold text in output, got %s", html)
	}
}

func TestRenderMarkdownEscapesRawHTML(t *testing.T) {
	html, err := RenderMarkdown(`<script>alert("x")</script>`)
	if err != nil {
		t.Fatalf("Failed to render markdown: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("Expected raw HTML to be escaped, got %s", html)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	got := truncate(strings.Repeat("a", 20), 5)
	if got != "aaaaa…" {
		t.Errorf("Expected truncated string with ellipsis, got %q", got)
	}
}
