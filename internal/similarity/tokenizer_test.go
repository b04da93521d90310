package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFoldsDiacriticsAndPunctuation(t *testing.T) {
	assert.Equal(t, "analisis sistem informasi e learning", Normalize("Análisis  Sistem-Informasi: E-Learning!"))
	assert.Equal(t, "", Normalize("  ...  "))
}

func TestTokensDropStopwords(t *testing.T) {
	tok := NewTokenizer(StemmerNone)
	assert.Equal(t, []string{"sistem", "informasi", "perpustakaan"}, tok.Tokens("Sistem Informasi untuk Perpustakaan"))
	assert.Equal(t, []string{"detection", "networks"}, tok.Tokens("Detection of the networks"))
}

func TestKeywordStemmingFoldsPlurals(t *testing.T) {
	tok := NewTokenizer(StemmerEnglish)
	assert.Equal(t, tok.Keyword("Network"), tok.Keyword("networks"))
	assert.Equal(t, tok.Keyword("Sensor Networks"), tok.Keyword("sensor network"))

	plain := NewTokenizer(StemmerNone)
	assert.NotEqual(t, plain.Keyword("Network"), plain.Keyword("networks"))
}
