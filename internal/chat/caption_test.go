package chat

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
)

func TestCaptionHTML(t *testing.T) {
	t.Run("no entities passes through", func(t *testing.T) {
		assert.Equal(t, "Great movie", captionHTML("Great movie", nil))
	})

	t.Run("bold", func(t *testing.T) {
		got := captionHTML("Great movie", []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 0, Length: 5},
		})
		assert.Equal(t, "<b>Great</b> movie", got)
	})

	t.Run("escapes markup characters", func(t *testing.T) {
		got := captionHTML("a<b & c", []tg.MessageEntityClass{
			&tg.MessageEntityItalic{Offset: 0, Length: 3},
		})
		assert.Equal(t, "<i>a&lt;b</i> &amp; c", got)
	})

	t.Run("text url", func(t *testing.T) {
		got := captionHTML("watch here", []tg.MessageEntityClass{
			&tg.MessageEntityTextURL{Offset: 6, Length: 4, URL: "https://example.com/x?a=1&b=2"},
		})
		assert.Equal(t, `watch <a href="https://example.com/x?a=1&amp;b=2">here</a>`, got)
	})

	t.Run("nested entities close innermost first", func(t *testing.T) {
		got := captionHTML("Great", []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 0, Length: 5},
			&tg.MessageEntityItalic{Offset: 0, Length: 5},
		})
		assert.Equal(t, "<b><i>Great</i></b>", got)
	})

	t.Run("offsets are utf16 units", func(t *testing.T) {
		// The emoji occupies two UTF-16 units, so "bold" starts at offset 3.
		got := captionHTML("🎬 bold", []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 3, Length: 4},
		})
		assert.Equal(t, "🎬 <b>bold</b>", got)
	})

	t.Run("out of range entity ignored", func(t *testing.T) {
		got := captionHTML("short", []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 2, Length: 50},
		})
		assert.Equal(t, "short", got)
	})
}
