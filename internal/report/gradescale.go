package report

import (
	"fmt"
	"sort"

	"github.com/edupoint/reportcard/internal/models"
)

// boundaryEps absorbs float drift when comparing band boundaries.
const boundaryEps = 1e-9

// Scale is a validated grade scale ready for lookups. Bands are sorted
// ascending by MinScore.
type Scale struct {
	models.GradeScale
}

// ValidateScale checks the partition invariant eagerly: bands ordered
// by sort_order must cover [0,100] with no overlaps, no gaps and
// monotonic boundaries. Adjacent bands may meet either on a shared
// boundary (40-60, 60-80) or with the integer-step convention
// (40-59, 60-80); anything wider is a gap. An invalid scale would
// produce undefined grades, so this is fatal.
func ValidateScale(s models.GradeScale) (*Scale, error) {
	if len(s.Bands) == 0 {
		return nil, &ConfigurationError{SchoolID: s.SchoolID, Stage: "grade_scale", Reason: "scale has no bands"}
	}

	bands := make([]models.GradeBand, len(s.Bands))
	copy(bands, s.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].SortOrder < bands[j].SortOrder })

	for i, b := range bands {
		if b.MinScore > b.MaxScore {
			return nil, &ConfigurationError{
				SchoolID: s.SchoolID, Stage: "grade_scale",
				Reason: fmt.Sprintf("band %s has min_score %.2f above max_score %.2f", b.LetterGrade, b.MinScore, b.MaxScore),
			}
		}
		if i == 0 {
			if b.MinScore > boundaryEps {
				return nil, &ConfigurationError{SchoolID: s.SchoolID, Stage: "grade_scale", Reason: "scale does not start at 0"}
			}
			continue
		}
		prev := bands[i-1]
		step := b.MinScore - prev.MaxScore
		if step < -boundaryEps {
			return nil, &ConfigurationError{
				SchoolID: s.SchoolID, Stage: "grade_scale",
				Reason: fmt.Sprintf("bands %s and %s overlap", prev.LetterGrade, b.LetterGrade),
			}
		}
		if step > 1+boundaryEps {
			return nil, &ConfigurationError{
				SchoolID: s.SchoolID, Stage: "grade_scale",
				Reason: fmt.Sprintf("gap between bands %s and %s", prev.LetterGrade, b.LetterGrade),
			}
		}
		if b.MinScore < prev.MinScore {
			return nil, &ConfigurationError{
				SchoolID: s.SchoolID, Stage: "grade_scale",
				Reason: "band boundaries are not monotonic by sort_order",
			}
		}
	}
	if last := bands[len(bands)-1]; last.MaxScore < 100-boundaryEps {
		return nil, &ConfigurationError{SchoolID: s.SchoolID, Stage: "grade_scale", Reason: "scale does not reach 100"}
	}

	out := s
	out.Bands = bands
	return &Scale{GradeScale: out}, nil
}

// Grade returns the band for percentage p. On a boundary shared by two
// bands the lower sort_order wins and a warning is recorded (a
// configuration defect, not fatal). A percentage inside an
// integer-convention crack (e.g. 59.50 between 40-59 and 60-80) grades
// into the band above it.
func (s *Scale) Grade(p float64, warns *Warnings) models.GradeBand {
	var matches []models.GradeBand
	for _, b := range s.Bands {
		if p >= b.MinScore-boundaryEps && p <= b.MaxScore+boundaryEps {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0]
	case 0:
		for _, b := range s.Bands {
			if p <= b.MaxScore+boundaryEps {
				return b
			}
		}
		return s.Bands[len(s.Bands)-1]
	default:
		win := matches[0]
		for _, m := range matches[1:] {
			if m.SortOrder < win.SortOrder {
				win = m
			}
		}
		warns.Add("grade_band_boundary",
			"percentage %.2f on shared band boundary, band %s (sort_order %d) wins",
			p, win.LetterGrade, win.SortOrder)
		return win
	}
}
