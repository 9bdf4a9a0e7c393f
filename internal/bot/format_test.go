package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadableSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{-1, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{734003200, "700.00 MB"},
		{5 << 30, "5.00 GB"},
		{3 << 40, "3.00 TB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, readableSize(tc.bytes))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short.mkv", truncate("short.mkv", 40))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
	// Rune-safe for non-ASCII names.
	assert.Equal(t, "Амели...", truncate("Амели 2001.avi", 5))
}
