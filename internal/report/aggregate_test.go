package report

import (
	"testing"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

type aggFixture struct {
	pol     *Policy
	subject models.Subject
	cat1    models.Assessment
	cat2    models.Assessment
	exam    models.Assessment
}

func newAggFixture(t *testing.T) aggFixture {
	t.Helper()
	catType := models.AssessmentType{ID: uuid.New(), Name: "CAT", Category: models.CategoryCAT, Weight: 1, IsActive: true}
	examType := models.AssessmentType{ID: uuid.New(), Name: "End of Term Exam", Category: models.CategoryExam, Weight: 1, IsActive: true}

	subject := models.Subject{ID: uuid.New(), Code: "MATH", Name: "Mathematics", CurriculumArea: models.AreaSciences}
	subjects := map[uuid.UUID]models.Subject{subject.ID: subject}

	pol, err := ResolvePolicy(testSettings(), integerStepScale(),
		[]models.AssessmentType{catType, examType}, nil, subjects)
	if err != nil {
		t.Fatal(err)
	}
	mk := func(typeID uuid.UUID, max float64) models.Assessment {
		return models.Assessment{ID: uuid.New(), SubjectID: subject.ID, AssessmentTypeID: typeID, MaxScore: max}
	}
	return aggFixture{
		pol:     pol,
		subject: subject,
		cat1:    mk(catType.ID, 20),
		cat2:    mk(catType.ID, 20),
		exam:    mk(examType.ID, 100),
	}
}

func TestAggregateSubject(t *testing.T) {
	t.Run("weighted_blend", func(t *testing.T) {
		f := newAggFixture(t)
		var w Warnings
		// CATs 15/20 and 17/20 average to 80%; exam 70/100.
		// 0.4*80 + 0.6*70 = 74.00.
		res := AggregateSubject(f.subject,
			[]models.Assessment{f.cat1, f.cat2, f.exam},
			map[uuid.UUID]float64{f.cat1.ID: 15, f.cat2.ID: 17, f.exam.ID: 70},
			f.pol, &w)
		if res.Percentage != 74.00 {
			t.Fatalf("percentage = %.2f, want 74.00", res.Percentage)
		}
		if res.LetterGrade != "C" || res.Points != 6 {
			t.Fatalf("grade = %s/%.0f, want C/6", res.LetterGrade, res.Points)
		}
	})

	t.Run("cat_only_renormalizes", func(t *testing.T) {
		f := newAggFixture(t)
		var w Warnings
		// No exam sat: the CAT mean stands alone at full weight rather
		// than being scaled by 40%.
		res := AggregateSubject(f.subject,
			[]models.Assessment{f.cat1, f.cat2, f.exam},
			map[uuid.UUID]float64{f.cat1.ID: 16, f.cat2.ID: 16},
			f.pol, &w)
		if res.Percentage != 80.00 {
			t.Fatalf("percentage = %.2f, want 80.00", res.Percentage)
		}
		if res.NotAssessed {
			t.Fatal("should not be flagged NotAssessed")
		}
	})

	t.Run("exam_only_renormalizes", func(t *testing.T) {
		f := newAggFixture(t)
		var w Warnings
		res := AggregateSubject(f.subject,
			[]models.Assessment{f.cat1, f.cat2, f.exam},
			map[uuid.UUID]float64{f.exam.ID: 55},
			f.pol, &w)
		if res.Percentage != 55.00 {
			t.Fatalf("percentage = %.2f, want 55.00", res.Percentage)
		}
	})

	t.Run("nothing_sat", func(t *testing.T) {
		f := newAggFixture(t)
		var w Warnings
		res := AggregateSubject(f.subject,
			[]models.Assessment{f.cat1, f.cat2, f.exam},
			nil, f.pol, &w)
		if !res.NotAssessed {
			t.Fatal("expected NotAssessed")
		}
		if res.Percentage != 0 || res.LetterGrade != "" {
			t.Fatalf("NotAssessed carried a result: %+v", res)
		}
	})

	t.Run("unknown_type_warns_and_skips", func(t *testing.T) {
		f := newAggFixture(t)
		var w Warnings
		orphan := models.Assessment{ID: uuid.New(), SubjectID: f.subject.ID, AssessmentTypeID: uuid.New(), MaxScore: 20}
		res := AggregateSubject(f.subject,
			[]models.Assessment{orphan, f.exam},
			map[uuid.UUID]float64{orphan.ID: 20, f.exam.ID: 50},
			f.pol, &w)
		if res.Percentage != 50.00 {
			t.Fatalf("percentage = %.2f, want 50.00 from exam only", res.Percentage)
		}
		if len(w.Items()) == 0 {
			t.Fatal("expected unknown type warning")
		}
	})

	t.Run("rounding_half_up", func(t *testing.T) {
		// 74.125 is exact in binary, so the half-way case is clean.
		if got := round2(74.125); got != 74.13 {
			t.Fatalf("round2(74.125) = %v", got)
		}
		if got := round2(74.12); got != 74.12 {
			t.Fatalf("round2(74.12) = %v", got)
		}
	})
}
