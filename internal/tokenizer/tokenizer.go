// Package tokenizer wraps github.com/pkoukk/tiktoken-go's cl100k_base
// encoding for token counting and implements the CJK-aware token budget
// multiplier spec.md §4.9 requires (Korean/Japanese text tokenizes denser
// under a BPE vocabulary trained mostly on English, so a fixed token budget
// under-serves CJK pages unless scaled up).
package tokenizer

import (
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(encodingName)
	})
	return enc, encErr
}

// Count returns the cl100k_base token count of s. Falls back to a
// byte-length/4 estimate if the encoding can't be loaded, since callers
// budget chunks rather than fail the whole page build over a tokenizer
// outage.
func Count(s string) int {
	e, err := encoding()
	if err != nil {
		return len(s) / 4
	}
	return len(e.Encode(s, nil, nil))
}

// cjkMultipliers maps a dominant-script guess to its budget multiplier.
var cjkMultipliers = map[string]float64{
	"ko":    1.8,
	"ja":    1.5,
	"other": 1.0,
}

const (
	minMultiplier = 1.0
	maxMultiplier = 2.5
	sampleRuneCap = 4000 // cap the CJK-ratio sample so budget computation stays O(1)-ish on huge pages
)

// BudgetMultiplier samples visible body text and returns the CJK-aware
// multiplier to apply to the base token budget, clamped to [1.0, 2.5].
func BudgetMultiplier(visibleText string) float64 {
	hangul, kana, han, other := 0, 0, 0, 0
	n := 0
	for _, r := range visibleText {
		if n >= sampleRuneCap {
			break
		}
		if unicode.IsSpace(r) {
			continue
		}
		n++
		switch {
		case unicode.In(r, unicode.Hangul):
			hangul++
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.In(r, unicode.Han):
			han++
		default:
			other++
		}
	}
	if n == 0 {
		return minMultiplier
	}

	cjkRatio := float64(hangul+kana+han) / float64(n)
	if cjkRatio < 0.15 {
		return minMultiplier
	}

	var base float64
	switch {
	case hangul >= kana && hangul >= han:
		base = cjkMultipliers["ko"]
	case kana >= han:
		base = cjkMultipliers["ja"]
	case han > 0:
		base = cjkMultipliers["other"] + 0.3 // plain Han without kana (e.g. Chinese) sits between "other" and "ja"
	default:
		base = cjkMultipliers["other"]
	}

	scaled := minMultiplier + (base-minMultiplier)*cjkRatio
	if scaled < minMultiplier {
		return minMultiplier
	}
	if scaled > maxMultiplier {
		return maxMultiplier
	}
	return scaled
}

// Budget computes the effective token budget for a page given a base budget
// and sampled visible text.
func Budget(baseBudget int, visibleText string) int {
	return int(float64(baseBudget) * BudgetMultiplier(visibleText))
}
