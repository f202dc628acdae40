package telegram

import (
	"strings"
	"testing"

	logx "appwatch/pkg/logx"
)

func TestSplitMessageShort(t *testing.T) {
	parts := splitMessage("hello")
	if len(parts) != 1 || parts[0] != "hello" {
		t.Fatalf("parts = %v", parts)
	}
}

func TestSplitMessagePrefersBlockBoundaries(t *testing.T) {
	block := strings.Repeat("a", 3000)
	text := block + "\n———\n" + block + "\n———\n" + block
	parts := splitMessage(text)
	if len(parts) < 2 {
		t.Fatalf("expected a split, got %d parts", len(parts))
	}
	for i, p := range parts {
		if len(p) > maxMessageLen {
			t.Fatalf("part %d is %d bytes, over the limit", i, len(p))
		}
	}
	// No content lost.
	joined := strings.Join(parts, "")
	for _, p := range []string{block} {
		if strings.Count(joined, p) != 3 {
			t.Fatal("split lost block content")
		}
	}
}

func TestSplitMessageNoBoundary(t *testing.T) {
	text := strings.Repeat("x", maxMessageLen+100)
	parts := splitMessage(text)
	total := 0
	for _, p := range parts {
		if len(p) > maxMessageLen {
			t.Fatalf("part over limit: %d", len(p))
		}
		total += len(p)
	}
	if total != len(text) {
		t.Fatalf("lost bytes: %d != %d", total, len(text))
	}
}

func TestNewRejectsMissingConfig(t *testing.T) {
	if _, err := New(Config{ChatID: 1}, logx.Nop()); err == nil {
		t.Fatal("empty token must be rejected")
	}
	if _, err := New(Config{Token: "t"}, logx.Nop()); err == nil {
		t.Fatal("empty chat_id must be rejected")
	}
}
