// Package academic derives academic-year labels and cohort levels from dates.
package academic

import (
	"strconv"
	"time"
)

// RolloverMonth is the first month of a new academic year.
const RolloverMonth = time.July

// Level is the two-semester block a student belongs to within a program.
type Level int

const (
	LevelOne Level = 1
	LevelTwo Level = 2
)

// Levels lists the choices offered when a student confirms their level.
var Levels = []Level{LevelOne, LevelTwo}

// Valid reports whether l is one of the supported cohort levels.
func (l Level) Valid() bool {
	return l == LevelOne || l == LevelTwo
}

// Year returns the calendar year in which the academic year containing now started.
func Year(now time.Time) int {
	if now.Month() >= RolloverMonth {
		return now.Year()
	}
	return now.Year() - 1
}

// YearLabel returns the academic-year label for now, e.g. "2024" for March 2025.
func YearLabel(now time.Time) string {
	return strconv.Itoa(Year(now))
}

// CohortLevel derives the default level for a student who enrolled in startYear.
// A zero startYear (unknown) yields LevelOne. Students past their second year
// stay on LevelTwo.
func CohortLevel(startYear int, now time.Time) Level {
	if startYear <= 0 {
		return LevelOne
	}
	switch n := Year(now) - startYear + 1; {
	case n <= 1:
		return LevelOne
	default:
		return LevelTwo
	}
}
