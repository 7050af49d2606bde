package report

import (
	"testing"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

func testSettings() models.SchoolResultsSettings {
	return models.SchoolResultsSettings{
		SchoolID:          uuid.New(),
		RankingMethod:     models.RankAllTaken,
		RankingN:          8,
		DefaultCATWeight:  40,
		DefaultExamWeight: 60,
	}
}

func ptr(f float64) *float64 { return &f }

func TestResolvePolicy(t *testing.T) {
	scale := integerStepScale()
	catType := models.AssessmentType{ID: uuid.New(), Name: "CAT 1", Category: models.CategoryCAT, Weight: 1, IsActive: true}
	examType := models.AssessmentType{ID: uuid.New(), Name: "Exam", Category: models.CategoryExam, Weight: 1, IsActive: true}
	types := []models.AssessmentType{catType, examType}

	mathID := uuid.New()
	subjects := map[uuid.UUID]models.Subject{
		mathID: {ID: mathID, Code: "MATH", CurriculumArea: models.AreaSciences},
	}

	t.Run("defaults_flow_through", func(t *testing.T) {
		pol, err := ResolvePolicy(testSettings(), scale, types, nil, subjects)
		if err != nil {
			t.Fatal(err)
		}
		w := pol.Weighting(mathID)
		if w.CAT != 40 || w.Exam != 60 {
			t.Fatalf("got weighting %+v, want 40/60", w)
		}
	})

	t.Run("weights_must_sum_to_100", func(t *testing.T) {
		s := testSettings()
		s.DefaultCATWeight = 30
		if _, err := ResolvePolicy(s, scale, types, nil, subjects); err == nil {
			t.Fatal("expected error for 30+60 weights")
		}
	})

	t.Run("subject_override", func(t *testing.T) {
		profiles := map[uuid.UUID]models.SubjectResultsProfile{
			mathID: {SubjectID: mathID, CATWeight: ptr(50), ExamWeight: ptr(50)},
		}
		pol, err := ResolvePolicy(testSettings(), scale, types, profiles, subjects)
		if err != nil {
			t.Fatal(err)
		}
		if w := pol.Weighting(mathID); w.CAT != 50 || w.Exam != 50 {
			t.Fatalf("got weighting %+v, want 50/50", w)
		}
	})

	t.Run("partial_override_rejected", func(t *testing.T) {
		profiles := map[uuid.UUID]models.SubjectResultsProfile{
			mathID: {SubjectID: mathID, CATWeight: ptr(50)},
		}
		if _, err := ResolvePolicy(testSettings(), scale, types, profiles, subjects); err == nil {
			t.Fatal("expected error for cat_weight without exam_weight")
		}
	})

	t.Run("inactive_types_dropped", func(t *testing.T) {
		inactive := models.AssessmentType{ID: uuid.New(), Name: "Old", Category: models.CategoryCAT, Weight: 1, IsActive: false}
		pol, err := ResolvePolicy(testSettings(), scale, append(types, inactive), nil, subjects)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := pol.Types[inactive.ID]; ok {
			t.Fatal("inactive type should not resolve")
		}
	})

	t.Run("unknown_category_rejected", func(t *testing.T) {
		bad := models.AssessmentType{ID: uuid.New(), Name: "Quiz", Category: "QUIZ_LIKE", Weight: 1, IsActive: true}
		if _, err := ResolvePolicy(testSettings(), scale, append(types, bad), nil, subjects); err == nil {
			t.Fatal("expected error for unknown category")
		}
	})

	t.Run("excluded_codes", func(t *testing.T) {
		s := testSettings()
		s.ExcludedSubjectCodes = []string{"MATH"}
		pol, err := ResolvePolicy(s, scale, types, nil, subjects)
		if err != nil {
			t.Fatal(err)
		}
		if !pol.ExcludedFromRanking(mathID) {
			t.Fatal("MATH should be excluded from ranking")
		}
	})
}
