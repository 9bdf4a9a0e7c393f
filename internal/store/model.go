package store

import "time"

// Media file types recognized by the indexer. The set is closed on purpose:
// photos carry no searchable file name and are not indexed.
const (
	TypeVideo    = "video"
	TypeDocument = "document"
	TypeAudio    = "audio"
)

// MediaRecord is one indexed file. (channel_id, message_id) is the unique
// key; re-indexing the same message replaces the record in place.
type MediaRecord struct {
	ChannelID int64  `bson:"channel_id"`
	MessageID int64  `bson:"message_id"`
	FileID    string `bson:"file_id"`
	FileName  string `bson:"file_name"`
	// Caption keeps the original formatting; search_tags holds its
	// normalized form. No omitempty: a $set upsert must clear the stored
	// caption when the message's caption was removed.
	Caption    string    `bson:"caption"`
	FileType   string    `bson:"file_type"`
	FileSize   int64     `bson:"file_size"`
	SearchTags string    `bson:"search_tags"`
	IndexedAt  time.Time `bson:"indexed_at"`
}

// User is a bot user, tracked for broadcast and ban bookkeeping.
type User struct {
	UserID    int64     `bson:"user_id"`
	FirstName string    `bson:"first_name"`
	Username  string    `bson:"username"`
	JoinDate  time.Time `bson:"join_date"`
	Banned    bool      `bson:"banned"`
}
