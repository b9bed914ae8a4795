package lang

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	intRe     = regexp.MustCompile(`\d+`)
	decimalRe = regexp.MustCompile(`\d+(\.\d+)?`)

	// Command and currency words stripped from item names. Arabic words
	// have no case so the replacement list carries them verbatim.
	itemNoise = []string{
		"ajouter", "retirer", "supprimer",
		"add", "remove", "delete",
		"إضافة", "إزالة", "حذف",
		"dinars", "دينار", "tnd",
	}
)

// FirstInt extracts the first integer token from text. ok is false when
// the text carries no digits.
func FirstInt(text string) (int, bool) {
	m := intRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Decimals returns every numeric token in order of appearance. A second
// distinct token in a quantity utterance is interpreted by the shopping
// module as a user-supplied unit price.
func Decimals(text string) []float64 {
	var out []float64
	for _, m := range decimalRe.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// QuantityAndPrice extracts the quantity and an optional user-supplied
// unit price from one utterance. The quantity is the first whole-number
// token (1 when none exists); a second distinct numeric token in the
// same utterance is the price override, so "milk 1.4 2" yields
// quantity 2 at 1.4 a piece.
func QuantityAndPrice(text string) (qty int, price float64, hasPrice bool) {
	qty = 1
	tokens := Decimals(text)
	qtyIdx := -1
	for i, v := range tokens {
		if v == float64(int(v)) {
			qty = int(v)
			qtyIdx = i
			break
		}
	}
	for i, v := range tokens {
		if i == qtyIdx {
			continue
		}
		return qty, v, true
	}
	return qty, 0, false
}

// CleanItemName strips command and currency words from a transcript so
// only the article name remains. Returns the trimmed remainder, which
// may be empty when the transcript was a bare command word.
func CleanItemName(text string) string {
	out := text
	for _, w := range itemNoise {
		out = replaceFold(out, w)
	}
	return strings.TrimSpace(out)
}

func replaceFold(s, word string) string {
	lower := strings.ToLower(s)
	word = strings.ToLower(word)
	var b strings.Builder
	for {
		i := strings.Index(lower, word)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i+len(word):]
		lower = lower[i+len(word):]
	}
}
