// Package cleaner removes extraction noise from page text.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MinTextLength is the shortest cleaned text worth keeping, in characters.
const MinTextLength = 50

// minLetterRatio is the share of letters below which a line is noise.
const minLetterRatio = 0.4

// maxCharRun is the longest run of one repeated character a line may contain.
const maxCharRun = 4

var headerFooterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*page\s*\d+\s*(of\s*\d+)?\s*$`),
	regexp.MustCompile(`^\s*\d+\s*$`),
	regexp.MustCompile(`(?i)^\s*(copyright\b|©).*$`),
	regexp.MustCompile(`(?i)^\s*confidential\b.*$`),
	regexp.MustCompile(`(?i)^\s*for internal use only\b.*$`),
}

var (
	bulletPattern     = regexp.MustCompile(`(?m)^\s*[•▪‣–—·*∙●◦]\s*`)
	manyNewlines      = regexp.MustCompile(`\n{3,}`)
	manySpaces        = regexp.MustCompile(`[ \t]{2,}`)
	hyphenatedLineEnd = regexp.MustCompile(`(\w+)-\n(\w+)`)
)

// Clean normalises raw extracted text and drops header, footer and noise
// lines. It returns "" when fewer than MinTextLength characters survive.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := norm.NFKC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if isHeaderFooter(line) || isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}

	text = strings.Join(kept, "\n")
	text = bulletPattern.ReplaceAllString(text, "- ")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) < MinTextLength {
		return ""
	}
	return text
}

// StitchPages joins page texts with blank lines, collapses runs of blank
// lines and spaces, and rejoins words hyphenated across line breaks.
func StitchPages(pages []string) string {
	text := strings.Join(pages, "\n\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	text = manySpaces.ReplaceAllString(text, " ")
	text = hyphenatedLineEnd.ReplaceAllString(text, "$1$2")
	return strings.TrimSpace(text)
}

func isHeaderFooter(line string) bool {
	for _, p := range headerFooterPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func isNoise(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return true
	}

	letters, total := 0, 0
	var prev rune
	run := 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
		if r == prev {
			run++
			if run > maxCharRun {
				return true
			}
		} else {
			prev, run = r, 1
		}
	}

	return float64(letters)/float64(total) < minLetterRatio
}
