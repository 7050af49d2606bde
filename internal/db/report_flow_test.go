//go:build testutil
// +build testutil

package db_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/edupoint/reportcard/internal/db"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/edupoint/reportcard/internal/testutil/testdb"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fixture struct {
	school   uuid.UUID
	head     models.Actor
	teacher  uuid.UUID
	class    uuid.UUID
	term     uuid.UUID
	student  uuid.UUID
	student2 uuid.UUID
	math     uuid.UUID
	eng      uuid.UUID
}

func mustExec(t *testing.T, d *sql.DB, q string, args ...any) {
	t.Helper()
	if _, err := d.ExecContext(context.Background(), q, args...); err != nil {
		t.Fatalf("exec %q: %v", q, err)
	}
}

// seedSchool builds one school with a class of two students, two
// subjects, a term, CAT+Exam assessment types, one assessment per type
// per subject and full marks data.
func seedSchool(t *testing.T, d *sql.DB) fixture {
	t.Helper()
	f := fixture{
		school:   uuid.New(),
		teacher:  uuid.New(),
		class:    uuid.New(),
		term:     uuid.New(),
		student:  uuid.New(),
		student2: uuid.New(),
		math:     uuid.New(),
		eng:      uuid.New(),
	}
	f.head = models.Actor{ID: uuid.New(), Role: models.RoleHeadTeacher, SchoolID: f.school, IsActive: true}

	mustExec(t, d, `INSERT INTO schools (id, name) VALUES ($1, 'Test School')`, f.school)
	mustExec(t, d, `INSERT INTO users (id, school_id, name, role) VALUES ($1, $2, 'Head', 'HEAD_TEACHER')`, f.head.ID, f.school)
	mustExec(t, d, `INSERT INTO users (id, school_id, name, role) VALUES ($1, $2, 'Teacher', 'TEACHER')`, f.teacher, f.school)
	mustExec(t, d, `INSERT INTO classes (id, school_id, name) VALUES ($1, $2, 'Form 1')`, f.class, f.school)
	mustExec(t, d, `INSERT INTO students (id, school_id, class_id, admission_no, first_name, last_name, stream)
VALUES ($1, $2, $3, 'ADM001', 'Asha', 'K', 'East')`, f.student, f.school, f.class)
	mustExec(t, d, `INSERT INTO students (id, school_id, class_id, admission_no, first_name, last_name, stream)
VALUES ($1, $2, $3, 'ADM002', 'Brian', 'O', 'East')`, f.student2, f.school, f.class)
	mustExec(t, d, `INSERT INTO subjects (id, school_id, code, name, curriculum_area)
VALUES ($1, $2, 'MATH', 'Mathematics', 'SCIENCES')`, f.math, f.school)
	mustExec(t, d, `INSERT INTO subjects (id, school_id, code, name, curriculum_area)
VALUES ($1, $2, 'ENG', 'English', 'LANGUAGES')`, f.eng, f.school)
	mustExec(t, d, `INSERT INTO class_subjects (class_id, subject_id) VALUES ($1, $2), ($1, $3)`, f.class, f.math, f.eng)
	mustExec(t, d, `INSERT INTO academic_terms (id, school_id, name, start_date, end_date, is_active)
VALUES ($1, $2, 'Term 1', '2026-01-05', '2026-04-10', TRUE)`, f.term, f.school)

	mustExec(t, d, `INSERT INTO school_results_settings (school_id) VALUES ($1)`, f.school)

	scale := uuid.New()
	mustExec(t, d, `INSERT INTO grade_scales (id, school_id, name, is_default) VALUES ($1, $2, 'Default', TRUE)`, scale, f.school)
	bands := []struct {
		min, max, points float64
		letter           string
	}{
		{0, 39, 2, "F"},
		{40, 59, 4, "D"},
		{60, 79, 6, "C"},
		{80, 100, 12, "A"},
	}
	for i, b := range bands {
		mustExec(t, d, `INSERT INTO grade_bands (id, scale_id, min_score, max_score, letter_grade, points, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, uuid.New(), scale, b.min, b.max, b.letter, b.points, i+1)
	}

	catType, examType := uuid.New(), uuid.New()
	mustExec(t, d, `INSERT INTO assessment_types (id, school_id, name, category, weight)
VALUES ($1, $3, 'CAT 1', 'CAT_LIKE', 1), ($2, $3, 'End of Term Exam', 'EXAM_LIKE', 1)`, catType, examType, f.school)

	for _, sub := range []uuid.UUID{f.math, f.eng} {
		for _, typ := range []uuid.UUID{catType, examType} {
			aid := uuid.New()
			mustExec(t, d, `INSERT INTO assessments (id, class_id, subject_id, teacher_id, assessment_type_id, academic_term_id, max_score)
VALUES ($1, $2, $3, $4, $5, $6, 100)`, aid, f.class, sub, f.teacher, typ, f.term)
			mustExec(t, d, `INSERT INTO student_marks (student_id, assessment_id, score, recorded_by)
VALUES ($1, $3, 70, $4), ($2, $3, 55, $4)`, f.student, f.student2, aid, f.teacher)
		}
	}
	return f
}

func newGenerator(store *db.Store) *report.Generator {
	return report.NewGenerator(store, store, store, zap.NewNop())
}

func TestGenerateVersionsSequential(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	f := seedSchool(t, h.DB)
	store := db.NewStore(h.DB)
	gen := newGenerator(store)
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		v, err := gen.Generate(ctx, f.head, f.student, f.term)
		if err != nil {
			t.Fatal(err)
		}
		if v.VersionNumber != want {
			t.Fatalf("version %d, want %d", v.VersionNumber, want)
		}
		if v.Status != models.StatusDraft {
			t.Fatalf("fresh version status %s", v.Status)
		}
	}

	cur, err := store.CurrentVersion(ctx, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}
	if cur.VersionNumber != 5 {
		t.Fatalf("current = %d, want 5", cur.VersionNumber)
	}
	all, err := store.Versions(ctx, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("history length = %d", len(all))
	}
}

func TestGenerateParallelNoDuplicates(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	f := seedSchool(t, h.DB)
	store := db.NewStore(h.DB)
	gen := newGenerator(store)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = gen.Generate(ctx, f.head, f.student, f.term)
		}(i)
	}
	wg.Wait()

	success := 0
	for _, e := range errs {
		switch {
		case e == nil:
			success++
		case errors.Is(e, report.ErrVersionConflict):
			// acceptable under heavy contention: retries exhausted
		default:
			t.Fatalf("unexpected error: %v", e)
		}
	}
	if success == 0 {
		t.Fatal("no generation succeeded")
	}

	all, err := store.Versions(ctx, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != success {
		t.Fatalf("stored %d versions for %d successes", len(all), success)
	}
	seen := make(map[int]bool)
	for _, v := range all {
		if seen[v.VersionNumber] {
			t.Fatalf("duplicate version number %d", v.VersionNumber)
		}
		seen[v.VersionNumber] = true
	}
	for n := 1; n <= success; n++ {
		if !seen[n] {
			t.Fatalf("version numbers not contiguous, missing %d", n)
		}
	}
}

func TestReleaseLifecycle(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	f := seedSchool(t, h.DB)
	store := db.NewStore(h.DB)
	gen := newGenerator(store)
	pub := report.NewPublisher(store, store, zap.NewNop())
	ctx := context.Background()

	v1, err := gen.Generate(ctx, f.head, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}

	released, err := pub.Release(ctx, f.head, v1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if released.Status != models.StatusReleased || released.ReleasedAt == nil {
		t.Fatalf("release did not stick: %+v", released)
	}

	if _, err := pub.Release(ctx, f.head, v1.ID); !errors.Is(err, report.ErrAlreadyReleased) {
		t.Fatalf("second release: got %v, want ErrAlreadyReleased", err)
	}

	// A correction run creates a new draft; the released version stays.
	mustExec(t, h.DB, `UPDATE student_marks SET score = 90 WHERE student_id = $1`, f.student)
	v2, err := gen.Generate(ctx, f.head, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}
	if v2.VersionNumber != 2 || v2.Status != models.StatusDraft {
		t.Fatalf("correction version: %+v", v2)
	}

	old, err := store.VersionByID(ctx, v1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(old.MarksSnapshot, released.MarksSnapshot) {
		t.Fatal("released snapshot changed after regeneration")
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	f := seedSchool(t, h.DB)
	store := db.NewStore(h.DB)
	gen := newGenerator(store)
	ctx := context.Background()

	v1, err := gen.Generate(ctx, f.head, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := gen.Generate(ctx, f.head, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v1.MarksSnapshot, v2.MarksSnapshot) {
		t.Fatalf("snapshots differ with unchanged inputs:\n%s\n%s", v1.MarksSnapshot, v2.MarksSnapshot)
	}
	if v2.VersionNumber != v1.VersionNumber+1 {
		t.Fatalf("regeneration must still advance the version: %d then %d", v1.VersionNumber, v2.VersionNumber)
	}
}

func TestGenerateAuthorization(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	f := seedSchool(t, h.DB)
	store := db.NewStore(h.DB)
	gen := newGenerator(store)
	ctx := context.Background()

	teacher := models.Actor{ID: f.teacher, Role: models.RoleTeacher, SchoolID: f.school, IsActive: true}
	if _, err := gen.Generate(ctx, teacher, f.student, f.term); !errors.Is(err, report.ErrForbidden) {
		t.Fatalf("teacher generate: got %v, want ErrForbidden", err)
	}

	outsider := models.Actor{ID: uuid.New(), Role: models.RoleHeadTeacher, SchoolID: uuid.New(), IsActive: true}
	if _, err := gen.Generate(ctx, outsider, f.student, f.term); !errors.Is(err, report.ErrForbidden) {
		t.Fatalf("cross-school generate: got %v, want ErrForbidden", err)
	}
}

func TestGenerateClassOutcomes(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	f := seedSchool(t, h.DB)
	store := db.NewStore(h.DB)
	gen := newGenerator(store)
	ctx := context.Background()

	outcomes, err := gen.GenerateClass(ctx, f.head, f.class, f.term)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != "" {
			t.Fatalf("student %s failed: %s", o.StudentID, o.Err)
		}
		if o.VersionNumber != 1 {
			t.Fatalf("student %s version %d", o.StudentID, o.VersionNumber)
		}
	}

	// 70% everywhere grades C (6 points across both subjects); ADM001
	// outranks ADM002.
	cur, err := store.CurrentVersion(ctx, f.student, f.term)
	if err != nil {
		t.Fatal(err)
	}
	if cur.ClassPosition != 1 || cur.ClassSize != 2 {
		t.Fatalf("class rank %d/%d, want 1/2", cur.ClassPosition, cur.ClassSize)
	}
	if cur.TotalPoints != 12 || cur.MeanPoints != 6 {
		t.Fatalf("points %v/%v, want 12/6", cur.TotalPoints, cur.MeanPoints)
	}
	if cur.StreamPosition == nil || *cur.StreamPosition != 1 {
		t.Fatalf("stream position %v, want 1", cur.StreamPosition)
	}

	subjects, err := store.VersionSubjects(ctx, cur.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(subjects) != 2 {
		t.Fatalf("line items = %d, want 2", len(subjects))
	}
	for _, s := range subjects {
		if s.LetterGrade == nil || *s.LetterGrade != "C" {
			t.Fatalf("subject %s grade %v, want C", s.SubjectCode, s.LetterGrade)
		}
		if s.SubjectRank == nil || *s.SubjectRank != 1 {
			t.Fatalf("subject %s rank %v, want 1", s.SubjectCode, s.SubjectRank)
		}
	}
}
