package data

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// User maps to users collection. AcademicOverride holds the cohort level a
// student confirmed for a given academic-year label.
type User struct {
	ID               bson.ObjectID  `bson:"_id,omitempty"`
	Email            string         `bson:"email"`
	Password         string         `bson:"password"`
	DisplayName      string         `bson:"display_name"`
	StartYear        int            `bson:"start_year,omitempty"`
	Filiere          string         `bson:"filiere"`
	IsMentor         bool           `bson:"is_mentor"`
	AcademicOverride map[string]int `bson:"academic_override,omitempty"`
	CreatedAt        time.Time      `bson:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at"`
}

// Message maps to room_messages collection. Timestamp is epoch millis from the
// server clock and drives display order.
type Message struct {
	ID         string `bson:"_id" json:"id"`
	RoomID     string `bson:"room_id" json:"-"`
	Text       string `bson:"text" json:"text"`
	SenderID   string `bson:"sender_id" json:"senderId"`
	SenderName string `bson:"sender_name" json:"senderName"`
	Timestamp  int64  `bson:"timestamp" json:"timestamp"`
	IsMentor   bool   `bson:"is_mentor" json:"isMentor"`
}

// RoomMetadata maps to room_metadata collection (one document per room).
// ResetCutoff is the epoch millis at which the last reset was claimed;
// ResetDone turns true once the wipe up to that cutoff has completed.
type RoomMetadata struct {
	RoomID      string    `bson:"_id" json:"-"`
	LastReset   string    `bson:"last_reset" json:"lastReset"`
	ResetCutoff int64     `bson:"reset_cutoff" json:"-"`
	ResetDone   bool      `bson:"reset_done" json:"-"`
	UpdatedAt   time.Time `bson:"updated_at" json:"-"`
}
