package report

import (
	"fmt"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

// weightSumEps tolerates float drift when checking that a weight pair
// sums to 100.
const weightSumEps = 1e-6

// Policy is the immutable results policy for one generation run. It is
// resolved once per class and threaded through every downstream
// computation; nothing reads settings mid-algorithm, so concurrent
// policy edits cannot shift a run that has started.
type Policy struct {
	Settings models.SchoolResultsSettings
	Scale    *Scale

	// Types holds the school's active assessment types by id, with
	// their closed CAT_LIKE/EXAM_LIKE category already validated.
	Types map[uuid.UUID]models.AssessmentType

	weights  map[uuid.UUID]models.Weighting
	excluded map[uuid.UUID]bool
}

// ResolvePolicy assembles and validates the policy for a school.
// subjects must contain every subject the run will touch.
func ResolvePolicy(
	settings models.SchoolResultsSettings,
	scale models.GradeScale,
	types []models.AssessmentType,
	profiles map[uuid.UUID]models.SubjectResultsProfile,
	subjects map[uuid.UUID]models.Subject,
) (*Policy, error) {
	vs, err := ValidateScale(scale)
	if err != nil {
		return nil, err
	}

	if sum := settings.DefaultCATWeight + settings.DefaultExamWeight; sum < 100-weightSumEps || sum > 100+weightSumEps {
		return nil, &ConfigurationError{
			SchoolID: settings.SchoolID, Stage: "weighting",
			Reason: fmt.Sprintf("default cat/exam weights sum to %.2f, want 100", sum),
		}
	}

	typeByID := make(map[uuid.UUID]models.AssessmentType, len(types))
	for _, t := range types {
		if !t.IsActive {
			continue
		}
		switch t.Category {
		case models.CategoryCAT, models.CategoryExam:
		default:
			return nil, &ConfigurationError{
				SchoolID: settings.SchoolID, Stage: "assessment_types",
				Reason: fmt.Sprintf("type %q has unknown category %q", t.Name, t.Category),
			}
		}
		if t.Weight <= 0 {
			return nil, &ConfigurationError{
				SchoolID: settings.SchoolID, Stage: "assessment_types",
				Reason: fmt.Sprintf("type %q has non-positive weight", t.Name),
			}
		}
		typeByID[t.ID] = t
	}

	excludedCodes := make(map[string]bool, len(settings.ExcludedSubjectCodes))
	for _, c := range settings.ExcludedSubjectCodes {
		excludedCodes[c] = true
	}

	weights := make(map[uuid.UUID]models.Weighting, len(subjects))
	excluded := make(map[uuid.UUID]bool)
	for id, sub := range subjects {
		w, err := resolveWeighting(settings, profiles[id])
		if err != nil {
			return nil, err
		}
		weights[id] = w
		if excludedCodes[sub.Code] || profiles[id].ExcludedFromRanking {
			excluded[id] = true
		}
	}

	return &Policy{
		Settings: settings,
		Scale:    vs,
		Types:    typeByID,
		weights:  weights,
		excluded: excluded,
	}, nil
}

// Weighting returns the resolved CAT/Exam pair for a subject. Subjects
// unknown to the policy fall back to the school defaults.
func (p *Policy) Weighting(subjectID uuid.UUID) models.Weighting {
	if w, ok := p.weights[subjectID]; ok {
		return w
	}
	return models.Weighting{CAT: p.Settings.DefaultCATWeight, Exam: p.Settings.DefaultExamWeight}
}

// ExcludedFromRanking reports whether a subject is kept out of ranking
// by its profile or the school's excluded code list.
func (p *Policy) ExcludedFromRanking(subjectID uuid.UUID) bool {
	return p.excluded[subjectID]
}

// resolveWeighting applies the subject profile over the school default.
// A partial override (one weight set without the other) is rejected so
// no weight is ever left implicit.
func resolveWeighting(settings models.SchoolResultsSettings, prof models.SubjectResultsProfile) (models.Weighting, error) {
	catSet, examSet := prof.CATWeight != nil, prof.ExamWeight != nil
	if catSet != examSet {
		return models.Weighting{}, &ConfigurationError{
			SchoolID: settings.SchoolID, Stage: "weighting",
			Reason: fmt.Sprintf("subject %s overrides only one of cat_weight/exam_weight", prof.SubjectID),
		}
	}
	if !catSet {
		return models.Weighting{CAT: settings.DefaultCATWeight, Exam: settings.DefaultExamWeight}, nil
	}
	if sum := *prof.CATWeight + *prof.ExamWeight; sum < 100-weightSumEps || sum > 100+weightSumEps {
		return models.Weighting{}, &ConfigurationError{
			SchoolID: settings.SchoolID, Stage: "weighting",
			Reason: fmt.Sprintf("subject %s weights sum to %.2f, want 100", prof.SubjectID, sum),
		}
	}
	return models.Weighting{CAT: *prof.CATWeight, Exam: *prof.ExamWeight}, nil
}
