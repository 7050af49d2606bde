package models

import "github.com/google/uuid"

// GradeBand maps a contiguous percentage range to one letter grade and
// point value. Bands of a valid scale partition [0,100] with no gaps or
// overlaps when ordered by SortOrder.
type GradeBand struct {
	ID          uuid.UUID `db:"id"`
	ScaleID     uuid.UUID `db:"scale_id"`
	MinScore    float64   `db:"min_score"`
	MaxScore    float64   `db:"max_score"`
	LetterGrade string    `db:"letter_grade"`
	Points      float64   `db:"points"`
	SortOrder   int       `db:"sort_order"`
}

// GradeScale is a school's default score-to-grade mapping. Bands are
// kept sorted ascending by MinScore.
type GradeScale struct {
	ID       uuid.UUID `db:"id"`
	SchoolID uuid.UUID `db:"school_id"`
	Name     string    `db:"name"`
	Bands    []GradeBand
}
