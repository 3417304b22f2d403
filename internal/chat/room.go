// Package chat implements academic-year-scoped chat rooms: room resolution,
// the yearly reset and live message synchronization.
package chat

import (
	"fmt"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/academic"
)

// RoomID returns the room of a program/cohort pair, "{filiere}_year{level}".
// Program codes are not checked against a known list: an unknown code simply
// names a new room.
func RoomID(filiere string, level academic.Level) string {
	return fmt.Sprintf("%s_year%d", filiere, level)
}
