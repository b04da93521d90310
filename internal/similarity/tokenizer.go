package similarity

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Stemmer names accepted by NewTokenizer.
const (
	StemmerEnglish = "english"
	StemmerNone    = "none"
)

// stopwords covers the English and Indonesian function words common in thesis titles.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "based": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "into": {}, "is": {}, "of": {}, "on": {}, "or": {}, "study": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "using": {}, "via": {}, "with": {},
	"dan": {}, "atau": {}, "dalam": {}, "dengan": {}, "di": {}, "ke": {}, "dari": {}, "pada": {},
	"untuk": {}, "yang": {}, "sebagai": {}, "terhadap": {}, "berbasis": {}, "menggunakan": {},
	"studi": {}, "kasus": {},
}

// Tokenizer normalises free text into comparable terms.
type Tokenizer struct {
	stem bool
}

// NewTokenizer builds a tokenizer; unknown stemmer names disable stemming.
func NewTokenizer(stemmer string) *Tokenizer {
	return &Tokenizer{stem: strings.EqualFold(strings.TrimSpace(stemmer), StemmerEnglish)}
}

// Normalize lowercases, folds diacritics and replaces punctuation with spaces.
func Normalize(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the content terms of text with stopwords removed.
func (t *Tokenizer) Tokens(text string) []string {
	fields := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, stop := stopwords[field]; stop {
			continue
		}
		tokens = append(tokens, t.stemTerm(field))
	}
	return tokens
}

// Keyword collapses a keyword phrase into a single comparable term.
func (t *Tokenizer) Keyword(keyword string) string {
	fields := strings.Fields(Normalize(keyword))
	for i, field := range fields {
		fields[i] = t.stemTerm(field)
	}
	return strings.Join(fields, " ")
}

func (t *Tokenizer) stemTerm(term string) string {
	if !t.stem || len(term) < 3 {
		return term
	}
	return english.Stem(term, true)
}
