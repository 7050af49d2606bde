package db

import (
	"context"
	"strings"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
)

// excluded_subject_codes is stored as a comma-separated TEXT column.

func joinCodes(codes []string) string { return strings.Join(codes, ",") }

func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) ResultsSettings(ctx context.Context, schoolID uuid.UUID) (*models.SchoolResultsSettings, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var set models.SchoolResultsSettings
	var codes string
	err := s.DB.QueryRowContext(ctx, `
SELECT school_id, ranking_method, ranking_n, min_total_subjects, max_total_subjects,
       min_sciences, max_humanities, excluded_subject_codes, default_cat_weight, default_exam_weight
FROM school_results_settings WHERE school_id = $1`, schoolID).Scan(
		&set.SchoolID, &set.RankingMethod, &set.RankingN, &set.MinTotalSubjects, &set.MaxTotalSubjects,
		&set.MinSciences, &set.MaxHumanities, &codes, &set.DefaultCATWeight, &set.DefaultExamWeight)
	if err != nil {
		return nil, persistErr("results_settings", err)
	}
	set.ExcludedSubjectCodes = splitCodes(codes)
	return &set, nil
}

// UpsertResultsSettings writes the whole settings row; the row is always
// replaced as a unit so a partial edit cannot leave mixed policy.
func (s *Store) UpsertResultsSettings(ctx context.Context, set models.SchoolResultsSettings) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `
INSERT INTO school_results_settings (
    school_id, ranking_method, ranking_n, min_total_subjects, max_total_subjects,
    min_sciences, max_humanities, excluded_subject_codes, default_cat_weight, default_exam_weight
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (school_id) DO UPDATE SET
    ranking_method = EXCLUDED.ranking_method,
    ranking_n = EXCLUDED.ranking_n,
    min_total_subjects = EXCLUDED.min_total_subjects,
    max_total_subjects = EXCLUDED.max_total_subjects,
    min_sciences = EXCLUDED.min_sciences,
    max_humanities = EXCLUDED.max_humanities,
    excluded_subject_codes = EXCLUDED.excluded_subject_codes,
    default_cat_weight = EXCLUDED.default_cat_weight,
    default_exam_weight = EXCLUDED.default_exam_weight`,
		set.SchoolID, set.RankingMethod, set.RankingN, set.MinTotalSubjects, set.MaxTotalSubjects,
		set.MinSciences, set.MaxHumanities, joinCodes(set.ExcludedSubjectCodes),
		set.DefaultCATWeight, set.DefaultExamWeight)
	return persistErr("upsert_results_settings", err)
}

func (s *Store) SubjectProfiles(ctx context.Context, schoolID uuid.UUID) (map[uuid.UUID]models.SubjectResultsProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
SELECT school_id, subject_id, cat_weight, exam_weight, excluded_from_ranking
FROM subject_results_profiles WHERE school_id = $1`, schoolID)
	if err != nil {
		return nil, persistErr("subject_profiles", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]models.SubjectResultsProfile)
	for rows.Next() {
		var p models.SubjectResultsProfile
		if err := rows.Scan(&p.SchoolID, &p.SubjectID, &p.CATWeight, &p.ExamWeight, &p.ExcludedFromRanking); err != nil {
			return nil, persistErr("subject_profiles", err)
		}
		out[p.SubjectID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("subject_profiles", err)
	}
	return out, nil
}
