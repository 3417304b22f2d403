// Package data provides DB models and stores.
package data

import (
	"context" // Used for cancellation and timeouts
	"errors"  // Error handling
	"time"    // Timestamps

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"  // MongoDB document queries
	"go.mongodb.org/mongo-driver/v2/mongo" // MongoDB driver
)

// UsersStore performs user profile DB operations.
type UsersStore struct {
	// coll is reference to "users" collection in MongoDB
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new user document. The password must already be hashed.
func (u *UsersStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	now := time.Now().UTC()
	user.Email = normalize.Email(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		// unique index on email
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	// MongoDB auto-generates the _id field; the hex form ends up in JWT claims
	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by the hex form of its ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		// malformed ids can never match a stored user
		return nil, ErrUserNotFound
	}

	var user User
	err = u.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetAcademicOverride records the level confirmed for one academic year.
// Only academic_override.<year> is touched so other years keep their values.
func (u *UsersStore) SetAcademicOverride(ctx context.Context, id, year string, level int) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}

	update := bson.M{"$set": bson.M{
		"academic_override." + year: level,
		"updated_at":                time.Now().UTC(),
	}}
	res, err := u.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
