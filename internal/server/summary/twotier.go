package summary

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
)

// Strategies reported by TwoTier.
const (
	StrategyPrimary  = "primary"
	StrategyFallback = "fallback"
)

// echoPrefixLen is how much of the input a primary result may not start with.
const echoPrefixLen = 30

// Result is a summary and the tier that produced it.
type Result struct {
	Text     string
	Strategy string
}

// TwoTier runs Primary under Timeout and falls back when it fails or
// returns something that does not look like a summary.
type TwoTier struct {
	Primary  Summarizer
	Fallback Summarizer
	Timeout  time.Duration
	Logger   logging.Logger
}

func (t *TwoTier) Run(ctx context.Context, text string, maxLen int) (Result, error) {
	if t.Primary != nil {
		if s, ok := t.tryPrimary(ctx, text, maxLen); ok {
			return Result{Text: s, Strategy: StrategyPrimary}, nil
		}
	}

	fallback := t.Fallback
	if fallback == nil {
		fallback = Extractive{}
	}
	s, err := fallback.Summarize(ctx, text, maxLen)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: s, Strategy: StrategyFallback}, nil
}

func (t *TwoTier) tryPrimary(ctx context.Context, text string, maxLen int) (string, bool) {
	pctx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	s, err := t.Primary.Summarize(pctx, text, maxLen)
	if err != nil {
		t.warn(ctx, "primary summarizer failed", "error", err)
		return "", false
	}

	s = clean(s)
	if n := runeLen(s); n < minSentenceLen || n > 2*maxLen {
		t.warn(ctx, "primary summary rejected by length", "length", n)
		return "", false
	}
	if isEcho(s, text) {
		t.warn(ctx, "primary summary repeats its input")
		return "", false
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s, true
}

func (t *TwoTier) warn(ctx context.Context, msg string, args ...any) {
	if t.Logger != nil {
		t.Logger.Warn(ctx, msg, args...)
	}
}

func clean(s string) string {
	s = strings.ReplaceAll(s, "Summary:", "")
	s = strings.ReplaceAll(s, "Text:", "")
	return strings.Join(strings.Fields(s), " ")
}

func squash(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

func isEcho(summary, input string) bool {
	head := []rune(input)
	if len(head) > echoPrefixLen {
		head = head[:echoPrefixLen]
	}
	prefix := squash(string(head))
	return prefix != "" && strings.HasPrefix(squash(summary), prefix)
}
