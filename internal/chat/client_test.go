package chat

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
)

func TestChannelIDConversion(t *testing.T) {
	assert.Equal(t, int64(-1001234567890), canonicalID(1234567890))
	assert.Equal(t, int64(1234567890), rawChannelID(-1001234567890))

	// Already-raw and plain negative IDs pass through unchanged in magnitude.
	assert.Equal(t, int64(1234567890), rawChannelID(1234567890))
	assert.Equal(t, int64(987654), rawChannelID(-987654))
}

func docMessage(id int, caption string, attrs ...tg.DocumentAttributeClass) *tg.Message {
	return &tg.Message{
		ID:      id,
		Message: caption,
		Media: &tg.MessageMediaDocument{
			Document: &tg.Document{
				ID:         int64(id) * 10,
				AccessHash: 777,
				Size:       4096,
				Attributes: attrs,
			},
		},
	}
}

func TestClassify(t *testing.T) {
	t.Run("video", func(t *testing.T) {
		got := classify(docMessage(5, "trailer",
			&tg.DocumentAttributeFilename{FileName: "trailer.mp4"},
			&tg.DocumentAttributeVideo{}))
		assert.Equal(t, KindVideo, got.Kind)
		assert.Equal(t, "trailer.mp4", got.FileName)
		assert.Equal(t, "trailer", got.Caption)
		assert.Equal(t, "trailer", got.CaptionText)
		assert.Equal(t, "50:777", got.FileID)
		assert.Equal(t, int64(4096), got.FileSize)
	})

	t.Run("formatted caption", func(t *testing.T) {
		m := docMessage(13, "Great movie",
			&tg.DocumentAttributeFilename{FileName: "movie.mkv"})
		m.Entities = []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 0, Length: 5},
		}
		got := classify(m)
		assert.Equal(t, "<b>Great</b> movie", got.Caption)
		assert.Equal(t, "Great movie", got.CaptionText)
	})

	t.Run("bare document", func(t *testing.T) {
		got := classify(docMessage(6, "",
			&tg.DocumentAttributeFilename{FileName: "book.pdf"}))
		assert.Equal(t, KindDocument, got.Kind)
		assert.Equal(t, "book.pdf", got.FileName)
	})

	t.Run("audio", func(t *testing.T) {
		got := classify(docMessage(7, "",
			&tg.DocumentAttributeAudio{}))
		assert.Equal(t, KindAudio, got.Kind)
	})

	t.Run("voice note excluded", func(t *testing.T) {
		got := classify(docMessage(8, "",
			&tg.DocumentAttributeAudio{Voice: true}))
		assert.Equal(t, KindNone, got.Kind)
	})

	t.Run("round video excluded", func(t *testing.T) {
		got := classify(docMessage(9, "",
			&tg.DocumentAttributeVideo{RoundMessage: true}))
		assert.Equal(t, KindNone, got.Kind)
	})

	t.Run("sticker excluded", func(t *testing.T) {
		got := classify(docMessage(10, "",
			&tg.DocumentAttributeSticker{}))
		assert.Equal(t, KindNone, got.Kind)
	})

	t.Run("photo excluded", func(t *testing.T) {
		got := classify(&tg.Message{ID: 11, Media: &tg.MessageMediaPhoto{}})
		assert.Equal(t, KindNone, got.Kind)
	})

	t.Run("text only", func(t *testing.T) {
		got := classify(&tg.Message{ID: 12, Message: "no media here"})
		assert.Equal(t, KindNone, got.Kind)
		assert.Equal(t, "no media here", got.Caption)
	})
}
