package report

import (
	"math"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

// SubjectResult is the aggregated outcome for one student+subject.
// NotAssessed means the student sat nothing in the subject this term;
// the line item still exists but carries no percentage or grade.
type SubjectResult struct {
	SubjectID   uuid.UUID `json:"subject_id"`
	SubjectCode string    `json:"subject_code"`
	Percentage  float64   `json:"percentage"`
	LetterGrade string    `json:"letter_grade"`
	Points      float64   `json:"points"`
	NotAssessed bool      `json:"not_assessed,omitempty"`
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}

// AggregateSubject computes the weighted percentage for one student in
// one subject from their raw marks.
//
// Scores normalize to 0-100 against each assessment's max score.
// Within a category the normalized scores combine as a mean weighted by
// the assessment type's relative weight (a plain average when all type
// weights are equal). A category the student has no marks in drops out
// and the remaining category's weight renormalizes to 100%, so a
// student with CAT marks but no exam yet is not understated.
func AggregateSubject(
	subject models.Subject,
	assessments []models.Assessment,
	marks map[uuid.UUID]float64,
	pol *Policy,
	warns *Warnings,
) SubjectResult {
	res := SubjectResult{SubjectID: subject.ID, SubjectCode: subject.Code}

	type catAgg struct {
		weighted float64
		weight   float64
	}
	var cat, exam catAgg

	for _, a := range assessments {
		score, sat := marks[a.ID]
		if !sat {
			continue
		}
		t, ok := pol.Types[a.AssessmentTypeID]
		if !ok {
			// Inactive or unknown type: the assessment cannot be
			// categorized, so it does not contribute.
			warns.Add("unknown_assessment_type",
				"assessment %s references inactive or unknown type %s", a.ID, a.AssessmentTypeID)
			continue
		}
		maxScore := a.MaxScore
		if maxScore <= 0 {
			maxScore = t.MaxScore
		}
		if maxScore <= 0 {
			warns.Add("bad_max_score", "assessment %s has no usable max score", a.ID)
			continue
		}
		norm := score / maxScore * 100
		switch t.Category {
		case models.CategoryExam:
			exam.weighted += norm * t.Weight
			exam.weight += t.Weight
		default:
			cat.weighted += norm * t.Weight
			cat.weight += t.Weight
		}
	}

	if cat.weight == 0 && exam.weight == 0 {
		res.NotAssessed = true
		return res
	}

	w := pol.Weighting(subject.ID)
	var sum, effective float64
	if cat.weight > 0 {
		sum += (cat.weighted / cat.weight) * w.CAT
		effective += w.CAT
	}
	if exam.weight > 0 {
		sum += (exam.weighted / exam.weight) * w.Exam
		effective += w.Exam
	}
	if effective == 0 {
		// Both resolved weights are zero for the categories with data
		// (e.g. CAT-only marks under a 0/100 split). Fall back to the
		// unweighted mean of what exists.
		total, n := 0.0, 0.0
		if cat.weight > 0 {
			total += cat.weighted / cat.weight
			n++
		}
		if exam.weight > 0 {
			total += exam.weighted / exam.weight
			n++
		}
		res.Percentage = round2(total / n)
	} else {
		res.Percentage = round2(sum / effective)
	}

	band := pol.Scale.Grade(res.Percentage, warns)
	res.LetterGrade = band.LetterGrade
	res.Points = band.Points
	return res
}
