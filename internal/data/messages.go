package data

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RoomsStore provides chat room database operations: the append-only message
// collection and the per-room reset metadata.
type RoomsStore struct {
	// messages is the "room_messages" collection, one document per message
	messages *mongo.Collection
	// metadata is the "room_metadata" collection, keyed by room id
	metadata *mongo.Collection
}

// NewRoomsStore returns a RoomsStore using the given collections.
func NewRoomsStore(messages, metadata *mongo.Collection) *RoomsStore {
	return &RoomsStore{messages: messages, metadata: metadata}
}

// AppendMessage inserts a message under its pre-generated id. Re-inserting an
// id that is already stored is a no-op, so callers may retry a write whose
// outcome was unknown.
func (r *RoomsStore) AppendMessage(ctx context.Context, msg *Message) error {
	_, err := r.messages.InsertOne(ctx, msg)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// ListMessages returns every message of a room ordered by timestamp, then id.
// A room nobody wrote to yields an empty slice.
func (r *RoomsStore) ListMessages(ctx context.Context, roomID string) ([]Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.messages.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteMessages removes the messages of a room whose timestamp is at or
// before upTo and reports how many were removed.
func (r *RoomsStore) DeleteMessages(ctx context.Context, roomID string, upTo int64) (int64, error) {
	filter := bson.M{
		"room_id":   roomID,
		"timestamp": bson.M{"$lte": upTo},
	}
	res, err := r.messages.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Watch opens a change stream on the messages collection and signals on the
// returned channel whenever the room may have changed. Signals are coalesced:
// a slow reader sees one pending signal, not one per change. The channel is
// closed when ctx ends or the stream fails.
//
// Change streams need a replica set; on a standalone server Watch returns an
// error and callers should fall back to polling.
func (r *RoomsStore) Watch(ctx context.Context, roomID string) (<-chan struct{}, error) {
	// Delete events carry no fullDocument, so any delete wakes every room
	// watcher; a spurious reload is harmless.
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "fullDocument.room_id", Value: roomID}},
				bson.D{{Key: "operationType", Value: "delete"}},
			}},
		}}},
	}

	cs, err := r.messages.Watch(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch, nil
}
