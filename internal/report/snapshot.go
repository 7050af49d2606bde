package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/edupoint/reportcard/internal/metrics"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// versionInsertAttempts bounds transparent retries of the version
// number allocation race.
const versionInsertAttempts = 3

// Generator drives the report-card pipeline: policy resolution, mark
// aggregation, ranking, snapshot assembly and the transactional write.
type Generator struct {
	store      Store
	attendance AttendanceSource
	audit      AuditSink
	log        *zap.Logger
}

func NewGenerator(store Store, attendance AttendanceSource, audit AuditSink, log *zap.Logger) *Generator {
	return &Generator{store: store, attendance: attendance, audit: audit, log: log}
}

// Outcome is the per-student result of a batch generation.
type Outcome struct {
	StudentID     uuid.UUID `json:"student_id"`
	VersionNumber int       `json:"version_number,omitempty"`
	Err           string    `json:"error,omitempty"`
}

// run holds everything computed once per class for a generation.
type run struct {
	termID  uuid.UUID
	data    *ClassData
	policy  *Policy
	warns   *Warnings
	rows    []StudentRow
	byID    map[uuid.UUID]*StudentRow
	class   Ranking
	streams map[string]Ranking
	subject map[uuid.UUID]map[uuid.UUID]int
}

// Generate computes and persists the next report-card version for one
// student+term.
func (g *Generator) Generate(ctx context.Context, actor models.Actor, studentID, termID uuid.UUID) (*models.ReportCardVersion, error) {
	if !actor.CanManageReports() {
		return nil, ErrForbidden
	}
	st, err := g.store.StudentByID(ctx, studentID)
	if err != nil {
		return nil, &GenerationError{StudentID: studentID, TermID: termID, Stage: "load_student", Err: err}
	}
	if st.SchoolID != actor.SchoolID {
		return nil, ErrForbidden
	}

	r, err := g.prepare(ctx, st.ClassID, termID)
	if err != nil {
		return nil, &GenerationError{StudentID: studentID, TermID: termID, Stage: "prepare", Err: err}
	}
	v, err := g.persistStudent(ctx, r, actor, studentID)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GenerateClass runs the pipeline for a whole class, one short
// transaction per student. Per-student failures do not stop the batch;
// committed versions stand, so an interrupted batch can simply be
// retried.
func (g *Generator) GenerateClass(ctx context.Context, actor models.Actor, classID, termID uuid.UUID) ([]Outcome, error) {
	if !actor.CanManageReports() {
		return nil, ErrForbidden
	}
	r, err := g.prepare(ctx, classID, termID)
	if err != nil {
		return nil, err
	}
	if r.data.Class.SchoolID != actor.SchoolID {
		return nil, ErrForbidden
	}

	outcomes := make([]Outcome, 0, len(r.data.Students))
	for _, st := range r.data.Students {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		v, err := g.persistStudent(ctx, r, actor, st.ID)
		o := Outcome{StudentID: st.ID}
		if err != nil {
			o.Err = err.Error()
			g.log.Warn("batch generation: student failed",
				zap.String("student_id", st.ID.String()), zap.Error(err))
		} else {
			o.VersionNumber = v.VersionNumber
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// prepare resolves policy once and computes the whole class's
// aggregation and rankings from one consistent data snapshot.
func (g *Generator) prepare(ctx context.Context, classID, termID uuid.UUID) (*run, error) {
	data, err := g.store.ClassData(ctx, classID, termID)
	if err != nil {
		return nil, err
	}
	schoolID := data.Class.SchoolID

	settings, err := g.store.ResultsSettings(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	scale, err := g.store.DefaultGradeScale(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	types, err := g.store.ActiveAssessmentTypes(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	profiles, err := g.store.SubjectProfiles(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	warns := &Warnings{}
	pol, err := ResolvePolicy(*settings, *scale, types, profiles, data.Subjects)
	if err != nil {
		return nil, err
	}

	bySubject := make(map[uuid.UUID][]models.Assessment)
	for _, a := range data.Assessments {
		bySubject[a.SubjectID] = append(bySubject[a.SubjectID], a)
	}
	subjectIDs := make([]uuid.UUID, 0, len(data.Subjects))
	for id := range data.Subjects {
		subjectIDs = append(subjectIDs, id)
	}
	sort.Slice(subjectIDs, func(i, j int) bool {
		return data.Subjects[subjectIDs[i]].Code < data.Subjects[subjectIDs[j]].Code
	})

	t0 := time.Now()
	r := &run{
		termID:  termID,
		data:    data,
		policy:  pol,
		warns:   warns,
		byID:    make(map[uuid.UUID]*StudentRow, len(data.Students)),
		streams: make(map[string]Ranking),
	}
	for _, st := range data.Students {
		row := StudentRow{Student: st}
		for _, sid := range subjectIDs {
			row.Subjects = append(row.Subjects, AggregateSubject(
				data.Subjects[sid], bySubject[sid], data.Marks[st.ID], pol, warns))
		}
		r.rows = append(r.rows, row)
	}
	for i := range r.rows {
		r.byID[r.rows[i].Student.ID] = &r.rows[i]
	}

	r.class = Rank(r.rows, pol, data.Subjects)
	for _, st := range data.Students {
		if st.Stream == nil {
			continue
		}
		if _, done := r.streams[*st.Stream]; !done {
			r.streams[*st.Stream] = RankStream(r.rows, *st.Stream, pol, data.Subjects)
		}
	}
	r.subject = SubjectPositions(r.rows)
	metrics.ObserveRanking(time.Since(t0))

	for _, w := range warns.Items() {
		g.log.Warn("results configuration warning",
			zap.String("school_id", schoolID.String()),
			zap.String("code", w.Code), zap.String("detail", w.Message))
	}
	return r, nil
}

// snapshotPayload is the byte-stable generation-time record kept in
// marks_snapshot. No timestamps: regenerating with unchanged scores
// must produce identical bytes.
type snapshotPayload struct {
	Subjects []snapshotSubject `json:"subjects"`
	Class    RankedStudent     `json:"class_ranking"`
	Stream   *RankedStudent    `json:"stream_ranking,omitempty"`
	Policy   snapshotPolicy    `json:"policy"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

type snapshotSubject struct {
	SubjectResult
	SubjectName   string `json:"subject_name"`
	Rank          int    `json:"rank,omitempty"`
	UsedInRanking bool   `json:"used_in_ranking"`
}

type snapshotPolicy struct {
	RankingMethod models.RankingMethod `json:"ranking_method"`
	RankingN      int                  `json:"ranking_n,omitempty"`
	GradeScaleID  uuid.UUID            `json:"grade_scale_id"`
}

// persistStudent assembles one student's version and writes it,
// retrying the version-number race a bounded number of times.
func (g *Generator) persistStudent(ctx context.Context, r *run, actor models.Actor, studentID uuid.UUID) (*models.ReportCardVersion, error) {
	row, ok := r.byID[studentID]
	if !ok {
		return nil, &GenerationError{StudentID: studentID, TermID: r.termID, Stage: "assemble",
			Err: fmt.Errorf("student not in class roster: %w", ErrNotFound)}
	}
	ranked := r.class.ByStudent(studentID)
	if ranked == nil {
		return nil, &GenerationError{StudentID: studentID, TermID: r.termID, Stage: "assemble",
			Err: errors.New("student missing from ranking")}
	}

	att, err := g.attendance.Summary(ctx, studentID, r.termID)
	if err != nil {
		return nil, &GenerationError{StudentID: studentID, TermID: r.termID, Stage: "attendance", Err: err}
	}

	counted := make(map[uuid.UUID]bool, len(ranked.Counted))
	for _, id := range ranked.Counted {
		counted[id] = true
	}

	var lines []models.ReportCardVersionSubject
	var snapSubjects []snapshotSubject
	for _, sr := range row.Subjects {
		sub := r.data.Subjects[sr.SubjectID]
		line := models.ReportCardVersionSubject{
			ID:            uuid.New(),
			SubjectID:     sr.SubjectID,
			SubjectCode:   sub.Code,
			SubjectName:   sub.Name,
			UsedInRanking: counted[sr.SubjectID],
			NotAssessed:   sr.NotAssessed,
		}
		snap := snapshotSubject{SubjectResult: sr, SubjectName: sub.Name, UsedInRanking: counted[sr.SubjectID]}
		if !sr.NotAssessed {
			pct, grade, pts := sr.Percentage, sr.LetterGrade, sr.Points
			line.Percentage, line.LetterGrade, line.Points = &pct, &grade, &pts
			if pos, ok := r.subject[sr.SubjectID][studentID]; ok {
				p := pos
				line.SubjectRank = &p
				snap.Rank = pos
			}
		}
		lines = append(lines, line)
		snapSubjects = append(snapSubjects, snap)
	}

	payload := snapshotPayload{
		Subjects: snapSubjects,
		Class:    *ranked,
		Policy: snapshotPolicy{
			RankingMethod: r.policy.Settings.RankingMethod,
			RankingN:      r.policy.Settings.RankingN,
			GradeScaleID:  r.policy.Scale.ID,
		},
		Warnings: r.warns.Items(),
	}

	v := &models.ReportCardVersion{
		StudentID:   studentID,
		TermID:      r.termID,
		ClassID:     r.data.Class.ID,
		SchoolID:    r.data.Class.SchoolID,
		Status:      models.StatusDraft,
		TotalPoints: ranked.TotalPoints,
		MeanPoints:  ranked.MeanPoints,
		ClassPosition: ranked.Position,
		ClassSize:     r.class.ClassSize,
		Incomplete:    ranked.Incomplete,
		Attendance:    att,
		GeneratedBy:   actor.ID,
	}
	if row.Student.Stream != nil {
		if sr := r.streams[*row.Student.Stream]; sr.ClassSize > 0 {
			if srRow := sr.ByStudent(studentID); srRow != nil {
				pos, size := srRow.Position, sr.ClassSize
				v.StreamPosition, v.StreamSize = &pos, &size
				streamCopy := *srRow
				payload.Stream = &streamCopy
			}
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &GenerationError{StudentID: studentID, TermID: r.termID, Stage: "snapshot", Err: err}
	}
	v.MarksSnapshot = raw

	for attempt := 1; ; attempt++ {
		v.ID = uuid.New()
		err = g.store.InsertVersion(ctx, v, lines)
		if err == nil {
			break
		}
		if errors.Is(err, ErrVersionConflict) && attempt < versionInsertAttempts {
			metrics.VersionConflicts.Inc()
			g.log.Debug("version number conflict, retrying",
				zap.String("student_id", studentID.String()), zap.Int("attempt", attempt))
			continue
		}
		metrics.GenerateErrors.Inc()
		return nil, &GenerationError{StudentID: studentID, TermID: r.termID, Stage: "persist", Err: err}
	}
	metrics.GenerateRuns.Inc()

	if err := g.audit.Record(ctx, AuditRecord{
		SchoolID:   v.SchoolID,
		ActorID:    actor.ID,
		Action:     "report_card:generate",
		ResourceID: v.ID.String(),
		Summary:    fmt.Sprintf("generated version %d for student %s, term %s", v.VersionNumber, studentID, r.termID),
	}); err != nil {
		g.log.Warn("audit record failed", zap.Error(err))
	}
	return v, nil
}
