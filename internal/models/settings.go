package models

import "github.com/google/uuid"

type RankingMethod string

const (
	RankBestN    RankingMethod = "BEST_N"
	RankAllTaken RankingMethod = "ALL_TAKEN"
)

// SchoolResultsSettings is the per-school results policy row. Exactly
// one per school. Default weights must sum to 100.
type SchoolResultsSettings struct {
	SchoolID             uuid.UUID     `db:"school_id" json:"school_id" validate:"required"`
	RankingMethod        RankingMethod `db:"ranking_method" json:"ranking_method" validate:"required,oneof=BEST_N ALL_TAKEN"`
	RankingN             int           `db:"ranking_n" json:"ranking_n" validate:"min=1"`
	MinTotalSubjects     int           `db:"min_total_subjects" json:"min_total_subjects" validate:"min=0"`
	MaxTotalSubjects     int           `db:"max_total_subjects" json:"max_total_subjects" validate:"gtefield=MinTotalSubjects"`
	MinSciences          int           `db:"min_sciences" json:"min_sciences" validate:"min=0"`
	MaxHumanities        int           `db:"max_humanities" json:"max_humanities" validate:"min=0"`
	ExcludedSubjectCodes []string      `db:"excluded_subject_codes" json:"excluded_subject_codes"`
	DefaultCATWeight     float64       `db:"default_cat_weight" json:"default_cat_weight" validate:"min=0,max=100"`
	DefaultExamWeight    float64       `db:"default_exam_weight" json:"default_exam_weight" validate:"min=0,max=100"`
}

// SubjectResultsProfile overrides the school defaults for one subject.
// Weight overrides are nullable but must be supplied as a pair.
type SubjectResultsProfile struct {
	SchoolID            uuid.UUID `db:"school_id"`
	SubjectID           uuid.UUID `db:"subject_id"`
	CATWeight           *float64  `db:"cat_weight"`
	ExamWeight          *float64  `db:"exam_weight"`
	ExcludedFromRanking bool      `db:"excluded_from_ranking"`
}

// Weighting is a resolved, complete CAT/Exam weight pair summing to 100.
type Weighting struct {
	CAT  float64
	Exam float64
}
