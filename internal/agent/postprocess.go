package agent

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Single blocks longer than this are split on line breaks.
const (
	singleBlockLimit = 500
	minLineChars     = 80
)

var (
	decimalDot    = regexp.MustCompile(`(\d)\.(\d{1,2})(\D|$)`)
	currencySpace = regexp.MustCompile(`(R\$|US\$)(\d)`)
	millionSpace  = regexp.MustCompile(`(\d)\s?MM\b`)
	upperMultiple = regexp.MustCompile(`(\d+,?\d*)X\b`)

	enumMarker   = regexp.MustCompile(`^\d+\.\s*`)
	bulletMarker = regexp.MustCompile(`^[-•]\s*`)
)

// NormalizeNumbers rewrites numbers into pt-BR conventions: a decimal point
// followed by one or two digits becomes a comma, currency symbols and "MM"
// are separated from the amount by a space and "X" multiples are lowered.
// Dots followed by three digits are thousands groups and are kept.
func NormalizeNumbers(text string) string {
	// Two passes so adjacent matches sharing a delimiter are both rewritten.
	for range 2 {
		text = decimalDot.ReplaceAllString(text, "$1,$2$3")
	}
	text = currencySpace.ReplaceAllString(text, "$1 $2")
	text = millionSpace.ReplaceAllString(text, "$1 MM")
	text = upperMultiple.ReplaceAllString(text, "${1}x")
	return text
}

// ParseParagraphs splits a reply into paragraphs on blank lines. A single
// block over 500 characters is split on line breaks instead when that yields
// at least two lines longer than 80 characters; otherwise the block is kept
// whole. Leading enumeration and bullet markers are stripped. An empty
// result is ErrEmptyReply.
func ParseParagraphs(text string) ([]string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := splitNonEmpty(text, "\n\n", 0)
	if len(paragraphs) == 1 && utf8.RuneCountInString(text) > singleBlockLimit {
		if lines := splitNonEmpty(text, "\n", minLineChars); len(lines) > 1 {
			paragraphs = lines
		}
	}

	cleaned := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = enumMarker.ReplaceAllString(p, "")
		p = bulletMarker.ReplaceAllString(p, "")
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyReply
	}
	return cleaned, nil
}

func splitNonEmpty(text, sep string, minChars int) []string {
	var out []string
	for _, p := range strings.Split(text, sep) {
		p = strings.TrimSpace(p)
		if p == "" || utf8.RuneCountInString(p) <= minChars {
			continue
		}
		out = append(out, p)
	}
	return out
}
