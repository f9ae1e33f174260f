package cleaner

import (
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

const prose = "Setting aside twenty percent of your monthly income builds savings steadily over time."

func TestClean_RemovesPageMarkers(t *testing.T) {
	raw := "Page 3 of 10\n" + prose + "\n42\n"

	got := Clean(raw)

	if got != prose {
		t.Errorf("expected only the prose line, got %q", got)
	}
}

func TestClean_HeaderFooterPatterns(t *testing.T) {
	tests := []string{
		"Page 3 of 10",
		"PAGE 7",
		"  12  ",
		"Copyright 2024 Bank Negara Malaysia",
		"© Bank Negara Malaysia",
		"CONFIDENTIAL - do not distribute",
		"For internal use only. Draft copy",
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			if !isHeaderFooter(line) {
				t.Errorf("expected %q to be treated as header/footer", line)
			}
		})
	}
}

func TestClean_KeepsProse(t *testing.T) {
	if isHeaderFooter(prose) || isNoise(prose) {
		t.Fatal("prose line should be kept")
	}
	if got := Clean(prose); got != prose {
		t.Errorf("expected prose unchanged, got %q", got)
	}
}

func TestIsNoise(t *testing.T) {
	tests := []struct {
		line  string
		noise bool
	}{
		{"", true},
		{"    ", true},
		{"12,345.67 | 8,901.23 | 0.45", true},
		{"Total..........................", true},
		{"aaaaa is a run", true},
		{"aaaa is not a run", false},
		{"Budgeting is planning how to spend money.", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := isNoise(tt.line); got != tt.noise {
				t.Errorf("isNoise(%q) = %v, want %v", tt.line, got, tt.noise)
			}
		})
	}
}

func TestClean_NormalisesBullets(t *testing.T) {
	raw := "• Track every ringgit you spend each month carefully\n" +
		"▪ Review subscriptions and cancel those you no longer use"

	got := Clean(raw)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "- ") {
			t.Errorf("expected bullet to be rewritten, got %q", l)
		}
	}
}

func TestClean_ShortResultIsEmpty(t *testing.T) {
	if got := Clean("Save more money."); got != "" {
		t.Errorf("expected empty result for short text, got %q", got)
	}
	if got := Clean(""); got != "" {
		t.Errorf("expected empty result for empty text, got %q", got)
	}
}

func TestClean_NFKC(t *testing.T) {
	// U+FB01 LATIN SMALL LIGATURE FI and full-width digits
	raw := "The ﬁnancial plan should allocate ２０ percent of income to savings each month."

	got := Clean(raw)

	if !strings.Contains(got, "financial") || !strings.Contains(got, "20 percent") {
		t.Errorf("expected compatibility characters to be normalised, got %q", got)
	}
}

func TestClean_CRLF(t *testing.T) {
	raw := "Page 1\r\n" + prose + "\r\n"
	if got := Clean(raw); got != prose {
		t.Errorf("expected CRLF input to be cleaned, got %q", got)
	}
}

func TestStitchPages(t *testing.T) {
	pages := []string{
		"An emergency fund protects you from unex-\npected expenses.",
		"Keep   it in a\n\n\n\nliquid account.",
	}

	got := StitchPages(pages)

	want := "An emergency fund protects you from unexpected expenses.\n\nKeep it in a\n\nliquid account."
	if got != want {
		t.Errorf("StitchPages() =\n%q\nwant\n%q", got, want)
	}
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "cleaner" {
		t.Errorf("expected name 'cleaner', got %q", New().Name())
	}
}

func TestProcessor_Process(t *testing.T) {
	doc := &domain.Document{
		SourcePath: "/tmp/money_basics.pdf",
		Pages: []domain.Page{
			{Number: 1, Text: "Page 1 of 2\n" + prose},
			{Number: 2, Text: "42"},
			{Number: 3, Text: prose + "\nPage 3 of 3"},
		},
	}

	chunks, err := New().Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected chunks to pass through, got %d", len(chunks))
	}

	want := prose + "\n\n" + prose
	if doc.Content != want {
		t.Errorf("expected stitched content %q, got %q", want, doc.Content)
	}
}

func TestProcessor_Process_NoPages(t *testing.T) {
	doc := &domain.Document{Content: "Page 9\n" + prose}

	if _, err := New().Process(context.Background(), doc, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != prose {
		t.Errorf("expected cleaned content, got %q", doc.Content)
	}
}
