// Package marksheet ingests teacher-entered score sheets (xlsx) for a
// single assessment. The sheet format is a header row followed by
// admission_no | score pairs.
package marksheet

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/edupoint/reportcard/internal/metrics"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Row is one parsed mark-sheet line.
type Row struct {
	AdmissionNo string
	Score       float64
}

// Store is the subset of persistence the importer needs.
type Store interface {
	AssessmentByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	StudentByAdmissionNo(ctx context.Context, schoolID uuid.UUID, admissionNo string) (*models.Student, error)
	UpsertMarks(ctx context.Context, marks []models.StudentMark) error
}

type Importer struct {
	store Store
	log   *zap.Logger
}

func NewImporter(store Store, log *zap.Logger) *Importer {
	return &Importer{store: store, log: log}
}

// Parse reads the first sheet of an xlsx workbook into rows. The
// header row is required and skipped; blank lines are ignored.
func Parse(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheets[0])
	}

	var rows []Row
	for i, line := range cells[1:] {
		if len(line) == 0 || strings.TrimSpace(line[0]) == "" {
			continue
		}
		if len(line) < 2 || strings.TrimSpace(line[1]) == "" {
			return nil, fmt.Errorf("row %d: missing score for %q", i+2, line[0])
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(line[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad score %q", i+2, line[1])
		}
		rows = append(rows, Row{AdmissionNo: strings.TrimSpace(line[0]), Score: score})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheets[0])
	}
	return rows, nil
}

// Import parses and persists one mark sheet. The whole sheet validates
// before anything is written, and the write itself is one transaction:
// a sheet with a bad row changes nothing.
func (im *Importer) Import(ctx context.Context, actor models.Actor, assessmentID uuid.UUID, r io.Reader) (int, error) {
	if !actor.CanEnterMarks() {
		return 0, report.ErrForbidden
	}
	rows, err := Parse(r)
	if err != nil {
		return 0, err
	}

	a, err := im.store.AssessmentByID(ctx, assessmentID)
	if err != nil {
		return 0, err
	}
	if actor.Role == models.RoleTeacher && a.TeacherID != actor.ID {
		return 0, report.ErrForbidden
	}

	seen := make(map[string]bool, len(rows))
	marks := make([]models.StudentMark, 0, len(rows))
	for i, row := range rows {
		if seen[row.AdmissionNo] {
			return 0, fmt.Errorf("row %d: duplicate admission number %q", i+2, row.AdmissionNo)
		}
		seen[row.AdmissionNo] = true

		if row.Score < 0 || row.Score > a.MaxScore {
			return 0, fmt.Errorf("row %d: score %.2f outside 0..%.2f for %q", i+2, row.Score, a.MaxScore, row.AdmissionNo)
		}
		st, err := im.store.StudentByAdmissionNo(ctx, actor.SchoolID, row.AdmissionNo)
		if err != nil {
			return 0, fmt.Errorf("row %d: admission number %q: %w", i+2, row.AdmissionNo, err)
		}
		if st.ClassID != a.ClassID {
			return 0, fmt.Errorf("row %d: student %q is not in the assessment's class", i+2, row.AdmissionNo)
		}
		marks = append(marks, models.StudentMark{
			StudentID:    st.ID,
			AssessmentID: a.ID,
			Score:        row.Score,
			RecordedBy:   actor.ID,
		})
	}

	if err := im.store.UpsertMarks(ctx, marks); err != nil {
		return 0, err
	}
	metrics.MarksImported.Add(float64(len(marks)))
	im.log.Info("mark sheet imported",
		zap.String("assessment_id", assessmentID.String()),
		zap.Int("rows", len(marks)))
	return len(marks), nil
}
