package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// Media records are written with a $set upsert, so every field must marshal
// even when empty; a dropped key would leave the previous value in place on
// re-index.
func TestMediaRecordMarshalsEmptyCaption(t *testing.T) {
	raw, err := bson.Marshal(MediaRecord{
		ChannelID: -1001234567890,
		MessageID: 42,
		FileID:    "1:2",
		FileName:  "movie.mkv",
		Caption:   "",
		FileType:  TypeVideo,
		SearchTags: "movie mkv",
		IndexedAt: time.Now(),
	})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))

	got, ok := doc["caption"]
	require.True(t, ok, "caption key must be present so re-indexing overwrites a removed caption")
	assert.Equal(t, "", got)
}

func TestUserMarshalsEmptyUsername(t *testing.T) {
	raw, err := bson.Marshal(User{
		UserID:    7,
		FirstName: "Ann",
		JoinDate:  time.Now(),
	})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))

	got, ok := doc["username"]
	require.True(t, ok, "username key must be present so a cleared username overwrites the old one")
	assert.Equal(t, "", got)
}
