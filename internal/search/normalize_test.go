package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("filename with separators", func(t *testing.T) {
		got := Normalize("The.Matrix_1999.mkv")
		assert.Equal(t, []string{"the", "matrix", "1999", "mkv"}, got)
	})

	t.Run("punctuation and symbols are separators", func(t *testing.T) {
		got := Normalize("Inception (2010) [1080p] - x264!")
		assert.Equal(t, []string{"inception", "2010", "1080p", "x264"}, got)
	})

	t.Run("unicode letters survive", func(t *testing.T) {
		got := Normalize("Амели 2001.avi")
		assert.Equal(t, []string{"амели", "2001", "avi"}, got)
	})

	t.Run("empty and blank input", func(t *testing.T) {
		assert.Empty(t, Normalize(""))
		assert.Empty(t, Normalize("   \t\n"))
		assert.Empty(t, Normalize("!!! ---"))
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"The.Matrix_1999.mkv Great movie!",
		"UPPER lower MiXeD 123",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(strings.Join(once, " "))
		assert.Equal(t, once, twice, "normalizing normalized text must be a fixed point, input %q", in)
	}
}

// Query-side and index-side normalization must agree: a case/punctuation
// variant of indexed text has to share tokens with it.
func TestNormalizeSymmetry(t *testing.T) {
	indexed := Normalize("The.Matrix_1999.mkv")
	query := Normalize("MATRIX 1999")

	indexedSet := make(map[string]bool, len(indexed))
	for _, tok := range indexed {
		indexedSet[tok] = true
	}
	var overlap []string
	for _, tok := range query {
		if indexedSet[tok] {
			overlap = append(overlap, tok)
		}
	}
	assert.ElementsMatch(t, []string{"matrix", "1999"}, overlap)
}

func TestTags(t *testing.T) {
	assert.Equal(t, "inception 2010 mkv great movie", Tags("Inception.2010.mkv", "Great movie"))
	assert.Equal(t, "", Tags("", ""))
	assert.Equal(t, "solo", Tags("Solo", ""))
}
