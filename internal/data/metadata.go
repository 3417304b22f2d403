package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GetMetadata returns the reset metadata of a room, or nil when the room has
// never been reset.
func (r *RoomsStore) GetMetadata(ctx context.Context, roomID string) (*RoomMetadata, error) {
	var md RoomMetadata
	err := r.metadata.FindOne(ctx, bson.M{"_id": roomID}).Decode(&md)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &md, nil
}

// ClaimReset atomically sets last_reset to target unless it already holds
// target. It reports whether this caller performed the change and returns the
// metadata as it was before (nil for a room without metadata).
//
// Concurrent claimers for the same target race on one document: exactly one
// sees won == true.
func (r *RoomsStore) ClaimReset(ctx context.Context, roomID, target string, cutoff int64) (*RoomMetadata, bool, error) {
	filter := bson.M{
		"_id":        roomID,
		"last_reset": bson.M{"$ne": target},
	}
	update := bson.M{"$set": bson.M{
		"last_reset":   target,
		"reset_cutoff": cutoff,
		"reset_done":   false,
		"updated_at":   time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var prev RoomMetadata
	err := r.metadata.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prev)
	switch {
	case err == nil:
		// matched a stale document
		return &prev, true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		// no document existed; the upsert created it
		return nil, true, nil
	case mongo.IsDuplicateKeyError(err):
		// the document exists and already holds target (or another claimer
		// inserted it first)
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// RevertReset undoes a claim made with target/cutoff, restoring prev. It only
// touches the document if the claim is still in place.
func (r *RoomsStore) RevertReset(ctx context.Context, roomID, target string, cutoff int64, prev *RoomMetadata) error {
	filter := bson.M{
		"_id":          roomID,
		"last_reset":   target,
		"reset_cutoff": cutoff,
	}

	if prev == nil {
		_, err := r.metadata.DeleteOne(ctx, filter)
		return err
	}

	update := bson.M{"$set": bson.M{
		"last_reset":   prev.LastReset,
		"reset_cutoff": prev.ResetCutoff,
		"reset_done":   prev.ResetDone,
		"updated_at":   time.Now().UTC(),
	}}
	_, err := r.metadata.UpdateOne(ctx, filter, update)
	return err
}

// MarkResetDone records that the wipe for the claim target/cutoff finished.
// A claim that has since been replaced is left alone.
func (r *RoomsStore) MarkResetDone(ctx context.Context, roomID, target string, cutoff int64) error {
	filter := bson.M{
		"_id":          roomID,
		"last_reset":   target,
		"reset_cutoff": cutoff,
	}
	update := bson.M{"$set": bson.M{
		"reset_done": true,
		"updated_at": time.Now().UTC(),
	}}
	_, err := r.metadata.UpdateOne(ctx, filter, update)
	return err
}
