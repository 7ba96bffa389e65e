// Package tokenizer turns raw text into the normalised token sequences the
// scorer expects. It lower-cases input, folds diacritics, drops punctuation
// and digits, and optionally removes stop-words and applies the Snowball
// English stemmer.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {}, "i": {},
	"you": {}, "she": {}, "we": {}, "me": {}, "my": {}, "her": {},
	"him": {}, "his": {}, "our": {}, "them": {}, "been": {},
}

// Options controls which optional normalisation steps run.
type Options struct {
	RemoveStopWords bool
	Stem            bool
	// MinLength drops tokens shorter than this many runes; values below 1
	// are treated as 1.
	MinLength int
}

// Tokenizer applies a fixed set of Options. It is safe for concurrent use.
type Tokenizer struct {
	opts Options
}

func New(opts Options) *Tokenizer {
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}
	return &Tokenizer{opts: opts}
}

// Tokenize breaks text into lower-cased tokens made only of letters.
// Apostrophes inside words are dropped ("don't" becomes "dont"); every other
// non-letter, digits included, separates tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	folded := foldDiacritics(strings.ToLower(text))
	folded = strings.NewReplacer("'", "", "’", "").Replace(folded)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop && t.opts.RemoveStopWords {
			continue
		}
		if t.opts.Stem {
			word = english.Stem(word, false)
		}
		if len([]rune(word)) < t.opts.MinLength {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Tokenize uses the default options: no stop-word removal, no stemming.
func Tokenize(text string) []string {
	return New(Options{}).Tokenize(text)
}

// IsStopWord reports whether word is in the built-in English stop list.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// foldDiacritics decomposes text and strips combining marks so "café" and
// "cafe" produce the same token.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
