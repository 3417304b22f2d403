// Package db manages MongoDB connections and collections.
package db

import (
	"context" // For connection timeout/cancellation
	"fmt"     // Error formatting
	"time"    // Duration for timeouts

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"  // MongoDB options
	"go.mongodb.org/mongo-driver/v2/mongo/readpref" // MongoDB read preference
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "chat_db"

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is the underlying MongoDB connection (thread-safe, can be reused)
	client *mongo.Client

	// db holds the users, room_messages and room_metadata collections
	db *mongo.Database
}

// New connects to MongoDB, verifies the connection and returns a Client bound
// to the named database.
func New(ctx context.Context, mongoURI, database string) (*Client, error) {
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if database == "" {
		database = DefaultDatabase
	}

	return &Client{
		client: client,
		db:     client.Database(database),
	}, nil
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection("users")
}

// MessagesCollection returns the room messages collection.
func (c *Client) MessagesCollection() *mongo.Collection {
	return c.db.Collection("room_messages")
}

// MetadataCollection returns the room metadata collection.
func (c *Client) MetadataCollection() *mongo.Collection {
	return c.db.Collection("room_metadata")
}

// Ping checks the primary is reachable; used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates necessary indexes for users and room messages.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// ===== USERS COLLECTION INDEX =====
	// no two users can share an email; backs GetUserByEmail
	usersIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := c.UsersCollection().Indexes().CreateOne(ctx, usersIndexModel)
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	// ===== ROOM MESSAGES INDEX =====
	// (room_id, timestamp) serves ListMessages ordering and the reset's
	// DeleteMessages range filter
	messagesIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "timestamp", Value: 1}},
	}

	_, err = c.MessagesCollection().Indexes().CreateOne(ctx, messagesIndexModel)
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	// room_metadata is keyed by _id (the room id); no extra index needed
	return nil
}
