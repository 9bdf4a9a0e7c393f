package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("record not found")

// Store wraps the MongoDB collections backing the index: media records,
// bot users and per-channel indexing checkpoints.
type Store struct {
	client   *mongo.Client
	media    *mongo.Collection
	users    *mongo.Collection
	settings *mongo.Collection
	log      *zap.Logger
}

// New connects to MongoDB and returns a Store bound to the given database.
func New(ctx context.Context, uri, dbName string, log *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:   client,
		media:    db.Collection("media"),
		users:    db.Collection("users"),
		settings: db.Collection("settings"),
		log:      log,
	}
	log.Info("store initialized (MongoDB)", zap.String("database", dbName))
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the store relies on: a text index over
// search_tags for ranked search, a unique (channel_id, message_id) key so
// upserts never duplicate, and a unique user_id key.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.media.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "search_tags", Value: "text"}},
			Options: options.Index().SetDefaultLanguage("english"),
		},
		{
			Keys: bson.D{
				{Key: "channel_id", Value: 1},
				{Key: "message_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("media indexes: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("user index: %w", err)
	}
	return nil
}

// --- Media ---

// UpsertMedia writes rec keyed by (channel_id, message_id). Calling it again
// for the same key replaces the record; it never creates a duplicate.
func (s *Store) UpsertMedia(ctx context.Context, rec MediaRecord) error {
	rec.IndexedAt = time.Now().UTC()
	filter := bson.M{"channel_id": rec.ChannelID, "message_id": rec.MessageID}
	_, err := s.media.UpdateOne(ctx, filter,
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert media %d/%d: %w", rec.ChannelID, rec.MessageID, err)
	}
	return nil
}

// Search runs a text-index query over search_tags. Results are ranked by
// relevance score, ties broken by message_id descending (newer first). The
// caller must not pass an empty cleaned query.
func (s *Store) Search(ctx context.Context, cleanedQuery string, limit int) ([]MediaRecord, error) {
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "message_id", Value: -1},
		}).
		SetLimit(int64(limit))

	cursor, err := s.media.Find(ctx, bson.M{"$text": bson.M{"$search": cleanedQuery}}, opts)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", cleanedQuery, err)
	}
	defer cursor.Close(ctx)

	var results []MediaRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("search %q: decode: %w", cleanedQuery, err)
	}
	return results, nil
}

func (s *Store) TotalMedia(ctx context.Context) (int64, error) {
	return s.media.CountDocuments(ctx, bson.M{})
}

// DeleteByChannel removes every indexed record of one channel along with its
// checkpoint, returning the number of records removed.
func (s *Store) DeleteByChannel(ctx context.Context, channelID int64) (int64, error) {
	res, err := s.media.DeleteMany(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return 0, fmt.Errorf("delete media for channel %d: %w", channelID, err)
	}
	if _, err := s.settings.DeleteOne(ctx, bson.M{"_id": checkpointKey(channelID)}); err != nil {
		s.log.Warn("failed to delete channel checkpoint",
			zap.Int64("channel_id", channelID), zap.Error(err))
	}
	return res.DeletedCount, nil
}

// DeleteAll wipes the whole media index and every checkpoint.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.media.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("delete all media: %w", err)
	}
	if _, err := s.settings.DeleteMany(ctx, bson.M{"_id": bson.M{"$regex": "^last_indexed_"}}); err != nil {
		s.log.Warn("failed to delete checkpoints", zap.Error(err))
	}
	return res.DeletedCount, nil
}

// --- Checkpoints ---

func checkpointKey(channelID int64) string {
	return fmt.Sprintf("last_indexed_%d", channelID)
}

// LastIndexedID returns the checkpoint for a channel, 0 if none exists.
func (s *Store) LastIndexedID(ctx context.Context, channelID int64) (int64, error) {
	var doc struct {
		MessageID int64 `bson:"message_id"`
	}
	err := s.settings.FindOne(ctx, bson.M{"_id": checkpointKey(channelID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checkpoint for channel %d: %w", channelID, err)
	}
	return doc.MessageID, nil
}

func (s *Store) SetLastIndexedID(ctx context.Context, channelID, messageID int64) error {
	_, err := s.settings.UpdateOne(ctx,
		bson.M{"_id": checkpointKey(channelID)},
		bson.M{"$set": bson.M{"message_id": messageID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set checkpoint for channel %d: %w", channelID, err)
	}
	return nil
}

// --- Users ---

// UpsertUser registers or refreshes a bot user. The join date is only set on
// first insert; ban status is left untouched.
func (s *Store) UpsertUser(ctx context.Context, userID int64, firstName, username string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{"first_name": firstName, "username": username},
			"$setOnInsert": bson.M{
				"join_date": time.Now().UTC(),
				"banned":    false,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", userID, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &u, nil
}

func (s *Store) IsBanned(ctx context.Context, userID int64) (bool, error) {
	u, err := s.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Banned, nil
}

func (s *Store) SetBanned(ctx context.Context, userID int64, banned bool) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set":         bson.M{"banned": banned},
			"$setOnInsert": bson.M{"join_date": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set ban status for user %d: %w", userID, err)
	}
	return nil
}

// ActiveUsers returns every non-banned user, for broadcast.
func (s *Store) ActiveUsers(ctx context.Context) ([]User, error) {
	return s.findUsers(ctx, bson.M{"banned": false})
}

func (s *Store) BannedUsers(ctx context.Context) ([]User, error) {
	return s.findUsers(ctx, bson.M{"banned": true})
}

func (s *Store) findUsers(ctx context.Context, filter bson.M) ([]User, error) {
	cursor, err := s.users.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *Store) TotalUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}

func (s *Store) TotalBanned(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{"banned": true})
}
