package report

import (
	"testing"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

func band(min, max float64, letter string, points float64, order int) models.GradeBand {
	return models.GradeBand{
		ID: uuid.New(), MinScore: min, MaxScore: max,
		LetterGrade: letter, Points: points, SortOrder: order,
	}
}

func integerStepScale() models.GradeScale {
	return models.GradeScale{
		ID: uuid.New(), Name: "Integer step",
		Bands: []models.GradeBand{
			band(0, 39, "F", 2, 1),
			band(40, 59, "D", 4, 2),
			band(60, 79, "C", 6, 3),
			band(80, 100, "A", 12, 4),
		},
	}
}

func sharedBoundaryScale() models.GradeScale {
	return models.GradeScale{
		ID: uuid.New(), Name: "Shared boundary",
		Bands: []models.GradeBand{
			band(0, 40, "F", 2, 1),
			band(40, 60, "D", 4, 2),
			band(60, 80, "C", 6, 3),
			band(80, 100, "A", 12, 4),
		},
	}
}

func TestValidateScale(t *testing.T) {
	t.Run("integer_step_ok", func(t *testing.T) {
		if _, err := ValidateScale(integerStepScale()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("shared_boundary_ok", func(t *testing.T) {
		if _, err := ValidateScale(sharedBoundaryScale()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("no_bands", func(t *testing.T) {
		if _, err := ValidateScale(models.GradeScale{Name: "Empty"}); err == nil {
			t.Fatal("expected error for scale without bands")
		}
	})

	t.Run("gap_rejected", func(t *testing.T) {
		s := models.GradeScale{Bands: []models.GradeBand{
			band(0, 39, "F", 2, 1),
			band(45, 100, "A", 12, 2), // 39->45 leaves 40-44 unmapped
		}}
		if _, err := ValidateScale(s); err == nil {
			t.Fatal("expected gap error")
		}
	})

	t.Run("overlap_rejected", func(t *testing.T) {
		s := models.GradeScale{Bands: []models.GradeBand{
			band(0, 50, "F", 2, 1),
			band(40, 100, "A", 12, 2),
		}}
		if _, err := ValidateScale(s); err == nil {
			t.Fatal("expected overlap error")
		}
	})

	t.Run("must_start_at_zero", func(t *testing.T) {
		s := models.GradeScale{Bands: []models.GradeBand{
			band(10, 100, "A", 12, 1),
		}}
		if _, err := ValidateScale(s); err == nil {
			t.Fatal("expected error for scale starting above 0")
		}
	})

	t.Run("must_reach_100", func(t *testing.T) {
		s := models.GradeScale{Bands: []models.GradeBand{
			band(0, 90, "A", 12, 1),
		}}
		if _, err := ValidateScale(s); err == nil {
			t.Fatal("expected error for scale ending below 100")
		}
	})

	t.Run("min_above_max_rejected", func(t *testing.T) {
		s := models.GradeScale{Bands: []models.GradeBand{
			band(0, 39, "F", 2, 1),
			band(59, 40, "D", 4, 2),
			band(60, 100, "A", 12, 3),
		}}
		if _, err := ValidateScale(s); err == nil {
			t.Fatal("expected error for inverted band")
		}
	})
}

func TestScaleGrade(t *testing.T) {
	t.Run("every_half_step_graded", func(t *testing.T) {
		s, err := ValidateScale(integerStepScale())
		if err != nil {
			t.Fatal(err)
		}
		for p := 0.0; p <= 100; p += 0.5 {
			var w Warnings
			b := s.Grade(p, &w)
			if b.LetterGrade == "" {
				t.Fatalf("percentage %.1f got no grade", p)
			}
		}
	})

	t.Run("crack_grades_upward", func(t *testing.T) {
		s, err := ValidateScale(integerStepScale())
		if err != nil {
			t.Fatal(err)
		}
		var w Warnings
		// 59.5 falls between the 40-59 and 60-79 bands.
		if got := s.Grade(59.5, &w); got.LetterGrade != "C" {
			t.Fatalf("59.5 graded %q, want C", got.LetterGrade)
		}
	})

	t.Run("shared_boundary_lower_sort_order_wins", func(t *testing.T) {
		s, err := ValidateScale(sharedBoundaryScale())
		if err != nil {
			t.Fatal(err)
		}
		var w Warnings
		if got := s.Grade(60, &w); got.LetterGrade != "D" {
			t.Fatalf("60 graded %q, want D", got.LetterGrade)
		}
		if len(w.Items()) == 0 {
			t.Fatal("expected a boundary warning")
		}
	})

	t.Run("exact_bounds", func(t *testing.T) {
		s, err := ValidateScale(integerStepScale())
		if err != nil {
			t.Fatal(err)
		}
		var w Warnings
		if got := s.Grade(0, &w); got.LetterGrade != "F" {
			t.Fatalf("0 graded %q, want F", got.LetterGrade)
		}
		if got := s.Grade(100, &w); got.LetterGrade != "A" {
			t.Fatalf("100 graded %q, want A", got.LetterGrade)
		}
	})
}
