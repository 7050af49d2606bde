package marksheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/edupoint/reportcard/internal/models"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func sheet(t *testing.T, rows [][]any) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	name := f.GetSheetName(0)
	_ = f.SetSheetRow(name, "A1", &[]any{"admission_no", "score"})
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		_ = f.SetSheetRow(name, cell, &row)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

type fakeStore struct {
	assessment models.Assessment
	students   map[string]models.Student
	upserted   []models.StudentMark
	upsertErr  error
}

func (s *fakeStore) AssessmentByID(_ context.Context, id uuid.UUID) (*models.Assessment, error) {
	if id != s.assessment.ID {
		return nil, report.ErrNotFound
	}
	a := s.assessment
	return &a, nil
}

func (s *fakeStore) StudentByAdmissionNo(_ context.Context, _ uuid.UUID, admissionNo string) (*models.Student, error) {
	st, ok := s.students[admissionNo]
	if !ok {
		return nil, report.ErrNotFound
	}
	return &st, nil
}

func (s *fakeStore) UpsertMarks(_ context.Context, marks []models.StudentMark) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, marks...)
	return nil
}

func newFixture() (*fakeStore, models.Actor) {
	schoolID := uuid.New()
	classID := uuid.New()
	teacherID := uuid.New()
	store := &fakeStore{
		assessment: models.Assessment{
			ID: uuid.New(), ClassID: classID, TeacherID: teacherID, MaxScore: 40,
		},
		students: map[string]models.Student{
			"ADM001": {ID: uuid.New(), SchoolID: schoolID, ClassID: classID, AdmissionNo: "ADM001"},
			"ADM002": {ID: uuid.New(), SchoolID: schoolID, ClassID: classID, AdmissionNo: "ADM002"},
			"ADM999": {ID: uuid.New(), SchoolID: schoolID, ClassID: uuid.New(), AdmissionNo: "ADM999"},
		},
	}
	actor := models.Actor{ID: teacherID, Role: models.RoleTeacher, SchoolID: schoolID, IsActive: true}
	return store, actor
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	t.Run("happy_path", func(t *testing.T) {
		store, actor := newFixture()
		imp := NewImporter(store, log)
		n, err := imp.Import(ctx, actor, store.assessment.ID, sheet(t, [][]any{
			{"ADM001", 35.5},
			{"ADM002", 28},
		}))
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 || len(store.upserted) != 2 {
			t.Fatalf("imported %d, upserted %d", n, len(store.upserted))
		}
		if store.upserted[0].Score != 35.5 || store.upserted[0].RecordedBy != actor.ID {
			t.Fatalf("unexpected mark: %+v", store.upserted[0])
		}
	})

	t.Run("score_above_max_rejects_whole_sheet", func(t *testing.T) {
		store, actor := newFixture()
		imp := NewImporter(store, log)
		_, err := imp.Import(ctx, actor, store.assessment.ID, sheet(t, [][]any{
			{"ADM001", 20},
			{"ADM002", 41},
		}))
		if err == nil {
			t.Fatal("expected error for score above max")
		}
		if len(store.upserted) != 0 {
			t.Fatal("a bad sheet must not write anything")
		}
	})

	t.Run("duplicate_admission_rejected", func(t *testing.T) {
		store, actor := newFixture()
		imp := NewImporter(store, log)
		_, err := imp.Import(ctx, actor, store.assessment.ID, sheet(t, [][]any{
			{"ADM001", 20},
			{"ADM001", 25},
		}))
		if err == nil {
			t.Fatal("expected duplicate error")
		}
	})

	t.Run("student_outside_class_rejected", func(t *testing.T) {
		store, actor := newFixture()
		imp := NewImporter(store, log)
		_, err := imp.Import(ctx, actor, store.assessment.ID, sheet(t, [][]any{
			{"ADM999", 20},
		}))
		if err == nil {
			t.Fatal("expected class mismatch error")
		}
	})

	t.Run("other_teachers_assessment_forbidden", func(t *testing.T) {
		store, actor := newFixture()
		actor.ID = uuid.New()
		imp := NewImporter(store, log)
		_, err := imp.Import(ctx, actor, store.assessment.ID, sheet(t, [][]any{
			{"ADM001", 20},
		}))
		if err != report.ErrForbidden {
			t.Fatalf("got %v, want ErrForbidden", err)
		}
	})

	t.Run("head_teacher_may_import_any", func(t *testing.T) {
		store, actor := newFixture()
		actor.ID = uuid.New()
		actor.Role = models.RoleHeadTeacher
		imp := NewImporter(store, log)
		if _, err := imp.Import(ctx, actor, store.assessment.ID, sheet(t, [][]any{
			{"ADM001", 20},
		})); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("parent_forbidden", func(t *testing.T) {
		store, actor := newFixture()
		actor.Role = models.RoleParent
		imp := NewImporter(store, log)
		if _, err := imp.Import(ctx, actor, store.assessment.ID, nil); err != report.ErrForbidden {
			t.Fatalf("got %v, want ErrForbidden", err)
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("header_required", func(t *testing.T) {
		f := excelize.NewFile()
		name := f.GetSheetName(0)
		_ = f.SetSheetRow(name, "A1", &[]any{"admission_no", "score"})
		buf, err := f.WriteToBuffer()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Parse(bytes.NewReader(buf.Bytes())); err == nil {
			t.Fatal("header-only sheet should fail")
		}
	})

	t.Run("bad_score_cell", func(t *testing.T) {
		r := sheet(t, [][]any{{"ADM001", "abc"}})
		if _, err := Parse(r); err == nil {
			t.Fatal("expected parse error for non-numeric score")
		}
	})

	t.Run("blank_rows_skipped", func(t *testing.T) {
		r := sheet(t, [][]any{
			{"ADM001", 10},
			{},
			{"ADM002", 12},
		})
		rows, err := Parse(r)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("parsed %d rows, want 2", len(rows))
		}
	})
}
