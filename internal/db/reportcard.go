package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/google/uuid"
)

const versionColumns = `
id, student_id, term_id, class_id, school_id, version_number, status,
total_points, mean_points, class_position, class_size, stream_position, stream_size,
incomplete, days_present, days_absent, attendance_pct, marks_snapshot,
generated_by, generated_at, released_by, released_at`

func scanVersion(row interface{ Scan(...any) error }) (*models.ReportCardVersion, error) {
	var v models.ReportCardVersion
	err := row.Scan(
		&v.ID, &v.StudentID, &v.TermID, &v.ClassID, &v.SchoolID, &v.VersionNumber, &v.Status,
		&v.TotalPoints, &v.MeanPoints, &v.ClassPosition, &v.ClassSize, &v.StreamPosition, &v.StreamSize,
		&v.Incomplete, &v.Attendance.DaysPresent, &v.Attendance.DaysAbsent, &v.Attendance.Percentage,
		&v.MarksSnapshot, &v.GeneratedBy, &v.GeneratedAt, &v.ReleasedBy, &v.ReleasedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertVersion allocates the next version number under the unique
// (student_id, term_id, version_number) constraint and writes the
// version with all its line items in one transaction. Losing the
// allocation race surfaces as report.ErrVersionConflict so the
// generator can retry; nothing partial is ever committed.
func (s *Store) InsertVersion(ctx context.Context, v *models.ReportCardVersion, lines []models.ReportCardVersionSubject) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("insert_version_begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
INSERT INTO report_card_versions (
    id, student_id, term_id, class_id, school_id, version_number, status,
    total_points, mean_points, class_position, class_size, stream_position, stream_size,
    incomplete, days_present, days_absent, attendance_pct, marks_snapshot, generated_by
) VALUES (
    $1, $2, $3, $4, $5,
    (SELECT COALESCE(MAX(version_number), 0) + 1 FROM report_card_versions WHERE student_id = $2 AND term_id = $3),
    $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
RETURNING version_number, generated_at`,
		v.ID, v.StudentID, v.TermID, v.ClassID, v.SchoolID, v.Status,
		v.TotalPoints, v.MeanPoints, v.ClassPosition, v.ClassSize, v.StreamPosition, v.StreamSize,
		v.Incomplete, v.Attendance.DaysPresent, v.Attendance.DaysAbsent, v.Attendance.Percentage,
		v.MarksSnapshot, v.GeneratedBy,
	).Scan(&v.VersionNumber, &v.GeneratedAt)
	if err != nil {
		if isUniqueViolation(err, "report_card_versions_student_id_term_id_version_number_key") {
			return fmt.Errorf("allocating version for student %s term %s: %w", v.StudentID, v.TermID, report.ErrVersionConflict)
		}
		return persistErr("insert_version", err)
	}

	for i := range lines {
		lines[i].VersionID = v.ID
		l := lines[i]
		_, err := tx.ExecContext(ctx, `
INSERT INTO report_card_version_subjects (
    id, version_id, subject_id, subject_code, subject_name,
    percentage, letter_grade, points, subject_rank, used_in_ranking, not_assessed
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			l.ID, l.VersionID, l.SubjectID, l.SubjectCode, l.SubjectName,
			l.Percentage, l.LetterGrade, l.Points, l.SubjectRank, l.UsedInRanking, l.NotAssessed)
		if err != nil {
			return persistErr("insert_version_subject", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr("insert_version_commit", err)
	}
	return nil
}

func (s *Store) VersionByID(ctx context.Context, id uuid.UUID) (*models.ReportCardVersion, error) {
	v, err := scanVersion(s.DB.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM report_card_versions WHERE id = $1`, id))
	if err != nil {
		return nil, persistErr("version_by_id", err)
	}
	return v, nil
}

// CurrentVersion returns the highest version for a student+term;
// "current" is computed, never stored.
func (s *Store) CurrentVersion(ctx context.Context, studentID, termID uuid.UUID) (*models.ReportCardVersion, error) {
	v, err := scanVersion(s.DB.QueryRowContext(ctx, `
SELECT `+versionColumns+` FROM report_card_versions
WHERE student_id = $1 AND term_id = $2
ORDER BY version_number DESC LIMIT 1`, studentID, termID))
	if err != nil {
		return nil, persistErr("current_version", err)
	}
	return v, nil
}

func (s *Store) Versions(ctx context.Context, studentID, termID uuid.UUID) ([]models.ReportCardVersion, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+versionColumns+` FROM report_card_versions
WHERE student_id = $1 AND term_id = $2 ORDER BY version_number`, studentID, termID)
	if err != nil {
		return nil, persistErr("versions", err)
	}
	defer rows.Close()

	var out []models.ReportCardVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, persistErr("versions", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("versions", err)
	}
	return out, nil
}

func (s *Store) DraftVersions(ctx context.Context, classID, termID uuid.UUID) ([]models.ReportCardVersion, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+versionColumns+` FROM report_card_versions
WHERE class_id = $1 AND term_id = $2 AND status = 'DRAFT'
ORDER BY student_id, version_number`, classID, termID)
	if err != nil {
		return nil, persistErr("draft_versions", err)
	}
	defer rows.Close()

	var out []models.ReportCardVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, persistErr("draft_versions", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("draft_versions", err)
	}
	return out, nil
}

// ReleaseVersion flips a DRAFT to RELEASED. The guard on status makes
// the transition terminal: a second release, or a release of a missing
// version, changes nothing.
func (s *Store) ReleaseVersion(ctx context.Context, versionID, releasedBy uuid.UUID, at time.Time) (*models.ReportCardVersion, error) {
	v, err := scanVersion(s.DB.QueryRowContext(ctx, `
UPDATE report_card_versions
SET status = 'RELEASED', released_by = $2, released_at = $3
WHERE id = $1 AND status = 'DRAFT'
RETURNING `+versionColumns, versionID, releasedBy, at))
	if errors.Is(err, sql.ErrNoRows) {
		var status string
		if err2 := s.DB.QueryRowContext(ctx,
			`SELECT status FROM report_card_versions WHERE id = $1`, versionID).Scan(&status); err2 != nil {
			return nil, persistErr("release_version", err2)
		}
		return nil, fmt.Errorf("version %s is %s: %w", versionID, status, report.ErrAlreadyReleased)
	}
	if err != nil {
		return nil, persistErr("release_version", err)
	}
	return v, nil
}

// VersionSubjects returns a version's line items for redisplay.
func (s *Store) VersionSubjects(ctx context.Context, versionID uuid.UUID) ([]models.ReportCardVersionSubject, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, version_id, subject_id, subject_code, subject_name,
       percentage, letter_grade, points, subject_rank, used_in_ranking, not_assessed
FROM report_card_version_subjects WHERE version_id = $1 ORDER BY subject_code`, versionID)
	if err != nil {
		return nil, persistErr("version_subjects", err)
	}
	defer rows.Close()

	var out []models.ReportCardVersionSubject
	for rows.Next() {
		var l models.ReportCardVersionSubject
		if err := rows.Scan(&l.ID, &l.VersionID, &l.SubjectID, &l.SubjectCode, &l.SubjectName,
			&l.Percentage, &l.LetterGrade, &l.Points, &l.SubjectRank, &l.UsedInRanking, &l.NotAssessed); err != nil {
			return nil, persistErr("version_subjects", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("version_subjects", err)
	}
	return out, nil
}

// StaleDrafts lists DRAFT versions generated before the cutoff, for
// the sweep job.
func (s *Store) StaleDrafts(ctx context.Context, cutoff time.Time) ([]models.ReportCardVersion, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+versionColumns+` FROM report_card_versions
WHERE status = 'DRAFT' AND generated_at < $1 ORDER BY generated_at`, cutoff)
	if err != nil {
		return nil, persistErr("stale_drafts", err)
	}
	defer rows.Close()

	var out []models.ReportCardVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, persistErr("stale_drafts", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("stale_drafts", err)
	}
	return out, nil
}
