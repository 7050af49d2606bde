package report

import (
	"sort"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

// StudentRow is one student's aggregated input to a ranking run.
type StudentRow struct {
	Student  models.Student
	Subjects []SubjectResult
}

// RankedStudent is one row of a ranking result. Positions are unique
// within a run given the deterministic tie-break chain.
type RankedStudent struct {
	StudentID   uuid.UUID `json:"student_id"`
	AdmissionNo string    `json:"admission_no"`
	TotalPoints float64   `json:"total_points"`
	MeanPoints  float64   `json:"mean_points"`
	Position    int       `json:"position"`

	// Incomplete flags a student whose subject mix violates the
	// policy bounds; they are ranked anyway, never dropped.
	Incomplete        bool     `json:"incomplete,omitempty"`
	IncompleteReasons []string `json:"incomplete_reasons,omitempty"`

	// Counted is the set of subject ids that contributed to the total.
	Counted []uuid.UUID `json:"counted_subjects"`
}

// Ranking is the outcome of ranking one cohort (class or stream).
type Ranking struct {
	Rows      []RankedStudent `json:"rows"`
	ClassSize int             `json:"class_size"`
}

// ByStudent returns the ranked row for a student, or nil.
func (r *Ranking) ByStudent(id uuid.UUID) *RankedStudent {
	for i := range r.Rows {
		if r.Rows[i].StudentID == id {
			return &r.Rows[i]
		}
	}
	return nil
}

// Rank orders a cohort under the policy's subject-selection method.
// subjects must resolve curriculum areas for the constraint checks.
func Rank(rows []StudentRow, pol *Policy, subjects map[uuid.UUID]models.Subject) Ranking {
	ranked := make([]RankedStudent, 0, len(rows))
	for _, row := range rows {
		ranked = append(ranked, scoreStudent(row, pol, subjects))
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.MeanPoints != b.MeanPoints {
			return a.MeanPoints > b.MeanPoints
		}
		return a.AdmissionNo < b.AdmissionNo
	})

	// position = 1 + count of students strictly ranked above. With the
	// admission-number tie-break full ties cannot occur; sharing a
	// position is only the defensive fallback.
	for i := range ranked {
		if i > 0 && ranked[i].TotalPoints == ranked[i-1].TotalPoints &&
			ranked[i].MeanPoints == ranked[i-1].MeanPoints &&
			ranked[i].AdmissionNo == ranked[i-1].AdmissionNo {
			ranked[i].Position = ranked[i-1].Position
			continue
		}
		ranked[i].Position = i + 1
	}

	return Ranking{Rows: ranked, ClassSize: len(ranked)}
}

// RankStream ranks the subset of rows sharing a stream value.
func RankStream(rows []StudentRow, stream string, pol *Policy, subjects map[uuid.UUID]models.Subject) Ranking {
	var sub []StudentRow
	for _, r := range rows {
		if r.Student.Stream != nil && *r.Student.Stream == stream {
			sub = append(sub, r)
		}
	}
	return Rank(sub, pol, subjects)
}

// SubjectPositions ranks each subject's assessed percentages across the
// cohort, for the per-subject rank on report-card line items. Ties
// resolve by admission number, mirroring the overall tie-break.
func SubjectPositions(rows []StudentRow) map[uuid.UUID]map[uuid.UUID]int {
	type entry struct {
		student     uuid.UUID
		admissionNo string
		pct         float64
	}
	bySubject := make(map[uuid.UUID][]entry)
	for _, row := range rows {
		for _, sr := range row.Subjects {
			if sr.NotAssessed {
				continue
			}
			bySubject[sr.SubjectID] = append(bySubject[sr.SubjectID], entry{
				student: row.Student.ID, admissionNo: row.Student.AdmissionNo, pct: sr.Percentage,
			})
		}
	}
	out := make(map[uuid.UUID]map[uuid.UUID]int, len(bySubject))
	for sid, entries := range bySubject {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].pct != entries[j].pct {
				return entries[i].pct > entries[j].pct
			}
			return entries[i].admissionNo < entries[j].admissionNo
		})
		m := make(map[uuid.UUID]int, len(entries))
		for i, e := range entries {
			m[e.student] = i + 1
		}
		out[sid] = m
	}
	return out
}

// scoreStudent applies the subject-selection policy to one student.
func scoreStudent(row StudentRow, pol *Policy, subjects map[uuid.UUID]models.Subject) RankedStudent {
	rs := RankedStudent{
		StudentID:   row.Student.ID,
		AdmissionNo: row.Student.AdmissionNo,
	}

	var eligible []SubjectResult
	for _, sr := range row.Subjects {
		if sr.NotAssessed || pol.ExcludedFromRanking(sr.SubjectID) {
			continue
		}
		eligible = append(eligible, sr)
	}

	selected := eligible
	if pol.Settings.RankingMethod == models.RankBestN {
		if n := len(eligible); n < pol.Settings.MinTotalSubjects {
			rs.Incomplete = true
			rs.IncompleteReasons = append(rs.IncompleteReasons, "below minimum subject count")
		} else if pol.Settings.MaxTotalSubjects > 0 && n > pol.Settings.MaxTotalSubjects {
			rs.Incomplete = true
			rs.IncompleteReasons = append(rs.IncompleteReasons, "above maximum subject count")
		}
		selected = bestN(eligible, pol.Settings.RankingN)
	}

	sciences, humanities := 0, 0
	for _, sr := range selected {
		switch subjects[sr.SubjectID].CurriculumArea {
		case models.AreaSciences:
			sciences++
		case models.AreaHumanities:
			humanities++
		}
	}
	if sciences < pol.Settings.MinSciences {
		rs.Incomplete = true
		rs.IncompleteReasons = append(rs.IncompleteReasons, "below minimum sciences")
	}
	if pol.Settings.MaxHumanities > 0 && humanities > pol.Settings.MaxHumanities {
		rs.Incomplete = true
		rs.IncompleteReasons = append(rs.IncompleteReasons, "above maximum humanities")
	}

	for _, sr := range selected {
		rs.TotalPoints += sr.Points
		rs.Counted = append(rs.Counted, sr.SubjectID)
	}
	if len(selected) > 0 {
		rs.MeanPoints = round2(rs.TotalPoints / float64(len(selected)))
	}
	return rs
}

// bestN picks the n highest-point subjects, deterministically: points
// desc, then percentage desc, then subject code asc. When the student
// has fewer than n eligible subjects everything counts.
func bestN(eligible []SubjectResult, n int) []SubjectResult {
	if n <= 0 || len(eligible) <= n {
		return eligible
	}
	sorted := make([]SubjectResult, len(eligible))
	copy(sorted, eligible)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		if sorted[i].Percentage != sorted[j].Percentage {
			return sorted[i].Percentage > sorted[j].Percentage
		}
		return sorted[i].SubjectCode < sorted[j].SubjectCode
	})
	return sorted[:n]
}
