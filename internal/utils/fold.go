package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lookalikes that compatibility decomposition leaves alone.
var confusables = strings.NewReplacer(
	"а", "a", "е", "e", "о", "o", "р", "p", "с", "c", "у", "y", "х", "x",
	"і", "i", "ј", "j", "ѕ", "s", "һ", "h", "ԁ", "d", "ɡ", "g", "ν", "v",
	"α", "a", "ο", "o", "ρ", "p", "τ", "t", "ι", "i", "κ", "k", "η", "n",
	"ⅰ", "i", "ℓ", "l", "ø", "o", "ł", "l", "đ", "d", "ß", "ss",
)

var foldCaser = cases.Fold()

// Fold reduces text to a lower-case ASCII-leaning form: compatibility
// decomposition, combining marks removed, case folded and common Cyrillic and
// Greek lookalikes mapped to Latin.
func Fold(input string) string {
	chain := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(chain, input)
	if err != nil {
		folded = input
	}
	return confusables.Replace(foldCaser.String(folded))
}

// FoldVariants returns the folded text as-is, with all whitespace removed,
// and with whitespace and punctuation removed.
func FoldVariants(input string) [3]string {
	folded := Fold(input)
	compact := strings.Join(strings.Fields(folded), "")
	bare := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, compact)
	return [3]string{folded, compact, bare}
}

// ContainsFolded reports whether phrase occurs in content. Each variant of
// the content is compared with the same variant of the phrase.
func ContainsFolded(content, phrase string) bool {
	needles := FoldVariants(phrase)
	if needles[2] == "" {
		return false
	}
	haystacks := FoldVariants(content)
	for i := range haystacks {
		if needles[i] != "" && strings.Contains(haystacks[i], needles[i]) {
			return true
		}
	}
	return false
}
