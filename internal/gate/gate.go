// Package gate blocks room entry until a student confirms their cohort level
// for the current academic year.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/academic"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"go.uber.org/zap"
)

var (
	ErrInvalidLevel    = errors.New("cohort level must be 1 or 2")
	ErrProfileNotFound = errors.New("profile not found")
)

// Profiles is the slice of the profile store the gate reads and writes.
type Profiles interface {
	GetUserByID(ctx context.Context, id string) (*data.User, error)
	SetAcademicOverride(ctx context.Context, id, year string, level int) error
}

// Status describes where a user stands for the current academic year.
type Status struct {
	UserID       string
	AcademicYear string
	Confirmed    bool
	// Level is the confirmed level, or DefaultLevel while unconfirmed.
	Level academic.Level
	// DefaultLevel is derived from the enrollment year and pre-highlighted
	// in the confirmation prompt.
	DefaultLevel academic.Level
	// Choices is what an unconfirmed user picks from.
	Choices []academic.Level
	Profile *data.User
}

// Gate implements the Unconfirmed -> Confirmed transition per (user, year).
type Gate struct {
	profiles Profiles
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New returns a Gate backed by profiles.
func New(profiles Profiles, log *zap.Logger, opts ...Option) *Gate {
	g := &Gate{profiles: profiles, now: time.Now, log: log}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check reports whether uid confirmed a level for the current academic year.
func (g *Gate) Check(ctx context.Context, uid string) (*Status, error) {
	user, err := g.profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	return statusFor(user, g.now()), nil
}

// Confirm persists level as uid's level for the current academic year and
// returns the confirmed status. Re-confirming overwrites the same year only.
func (g *Gate) Confirm(ctx context.Context, uid string, level academic.Level) (*Status, error) {
	if !level.Valid() {
		return nil, ErrInvalidLevel
	}

	now := g.now()
	year := academic.YearLabel(now)

	if err := g.profiles.SetAcademicOverride(ctx, uid, year, int(level)); err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("persist level for %s: %w", year, err)
	}
	g.log.Info("cohort level confirmed",
		zap.String("user_id", uid),
		zap.String("academic_year", year),
		zap.Int("level", int(level)))

	user, err := g.profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	return statusFor(user, now), nil
}

func (g *Gate) profile(ctx context.Context, uid string) (*data.User, error) {
	user, err := g.profiles.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return user, nil
}

func statusFor(user *data.User, now time.Time) *Status {
	year := academic.YearLabel(now)
	def := academic.CohortLevel(user.StartYear, now)

	st := &Status{
		UserID:       user.ID.Hex(),
		AcademicYear: year,
		Level:        def,
		DefaultLevel: def,
		Choices:      academic.Levels,
		Profile:      user,
	}
	// an out-of-range stored value counts as unconfirmed
	if v, ok := user.AcademicOverride[year]; ok && academic.Level(v).Valid() {
		st.Confirmed = true
		st.Level = academic.Level(v)
	}
	return st
}
