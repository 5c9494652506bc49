// Package summary produces short text summaries. A remote inference
// service is tried first and a deterministic extractive summarizer covers
// its failures.
package summary

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Summarizer condenses text to roughly maxLen characters.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen int) (string, error)
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	sentenceRe = regexp.MustCompile(`[.!?]+`)
)

// minSentenceLen drops fragments such as abbreviations and headings.
const minSentenceLen = 10

// Extractive picks the highest scoring sentences and keeps their original order.
type Extractive struct{}

func (Extractive) Summarize(_ context.Context, text string, maxLen int) (string, error) {
	return extract(text, maxLen), nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func runeLen(s string) int {
	return len([]rune(s))
}

type scored struct {
	pos   int
	score int
	text  string
}

func extract(text string, maxLen int) string {
	text = spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")

	var sentences []string
	for _, s := range sentenceRe.Split(text, -1) {
		s = strings.TrimSpace(s)
		if runeLen(s) > minSentenceLen {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) <= 2 {
		return truncate(text, maxLen)
	}

	candidates := make([]scored, len(sentences))
	for i, s := range sentences {
		score := 1
		switch i {
		case 0:
			score = 3
		case len(sentences) - 1:
			score = 2
		}
		switch n := runeLen(s); {
		case n >= 20 && n <= 100:
			score += 2
		case n > 100:
			score++
		}
		candidates[i] = scored{pos: i, score: score, text: s}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var picked []scored
	used := 0
	for _, c := range candidates {
		n := runeLen(c.text) + 2
		if used+n > maxLen {
			break
		}
		picked = append(picked, c)
		used += n
	}
	if len(picked) == 0 {
		return truncate(text, maxLen)
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].pos < picked[j].pos })
	parts := make([]string, len(picked))
	for i, p := range picked {
		parts[i] = p.text
	}
	return truncate(strings.Join(parts, ". ")+".", maxLen)
}
