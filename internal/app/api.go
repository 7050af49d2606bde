package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/edupoint/reportcard/internal/ctxutil"
	"github.com/edupoint/reportcard/internal/db"
	"github.com/edupoint/reportcard/internal/marksheet"
	"github.com/edupoint/reportcard/internal/models"
	"github.com/edupoint/reportcard/internal/observability"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// API carries the wired services behind the JSON endpoints.
type API struct {
	Store    *db.Store
	Gen      *report.Generator
	Pub      *report.Publisher
	Importer *marksheet.Importer
	Log      *zap.Logger

	validate *validator.Validate
	limiter  *ClassLimiter
}

func NewAPI(store *db.Store, gen *report.Generator, pub *report.Publisher, imp *marksheet.Importer, log *zap.Logger) *API {
	return &API{
		Store:    store,
		Gen:      gen,
		Pub:      pub,
		Importer: imp,
		Log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  NewClassLimiter(),
	}
}

func (a *API) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports/generate", a.withActor(a.handleGenerate))
	mux.HandleFunc("POST /api/reports/generate-class", a.withActor(a.handleGenerateClass))
	mux.HandleFunc("POST /api/reports/publish", a.withActor(a.handlePublish))
	mux.HandleFunc("POST /api/reports/publish-bulk", a.withActor(a.handlePublishBulk))
	mux.HandleFunc("GET /api/reports/current", a.withActor(a.handleCurrent))
	mux.HandleFunc("GET /api/reports/versions", a.withActor(a.handleVersions))
	mux.HandleFunc("GET /api/settings/results", a.withActor(a.handleGetSettings))
	mux.HandleFunc("PUT /api/settings/results", a.withActor(a.handlePutSettings))
	mux.HandleFunc("POST /api/marks/import", a.withActor(a.handleMarksImport))
}

// withActor resolves X-Actor-ID into a live models.Actor and stamps
// actor and school onto the request context. Role checks happen in the
// services, not here.
func (a *API) withActor(h func(w http.ResponseWriter, r *http.Request, actor models.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Actor-ID")
		if raw == "" {
			a.writeErr(w, http.StatusUnauthorized, errors.New("missing X-Actor-ID header"))
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			a.writeErr(w, http.StatusUnauthorized, errors.New("malformed X-Actor-ID header"))
			return
		}
		ctx, cancel := ctxutil.WithDBTimeout(r.Context())
		actor, err := a.Store.ActorByID(ctx, id)
		cancel()
		if err != nil {
			if errors.Is(err, report.ErrNotFound) {
				a.writeErr(w, http.StatusUnauthorized, errors.New("unknown actor"))
				return
			}
			a.writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if !actor.IsActive {
			a.writeErr(w, http.StatusForbidden, errors.New("actor is deactivated"))
			return
		}
		ctx = ctxutil.WithActorID(r.Context(), actor.ID)
		ctx = ctxutil.WithSchoolID(ctx, actor.SchoolID)
		h(w, r.WithContext(ctx), *actor)
	}
}

type generateRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
	TermID    uuid.UUID `json:"term_id" validate:"required"`
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	v, err := a.Gen.Generate(r.Context(), actor, req.StudentID, req.TermID)
	if err != nil {
		a.serviceErr(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, a.versionView(r, v, false))
}

type classRequest struct {
	ClassID uuid.UUID `json:"class_id" validate:"required"`
	TermID  uuid.UUID `json:"term_id" validate:"required"`
}

func (a *API) handleGenerateClass(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req classRequest
	if !a.decode(w, r, &req) {
		return
	}
	unlock := a.limiter.lock(req.ClassID)
	defer unlock()

	outcomes, err := a.Gen.GenerateClass(r.Context(), actor, req.ClassID, req.TermID)
	if err != nil {
		a.serviceErr(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

type publishRequest struct {
	VersionID uuid.UUID `json:"version_id" validate:"required"`
}

func (a *API) handlePublish(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req publishRequest
	if !a.decode(w, r, &req) {
		return
	}
	v, err := a.Pub.Release(r.Context(), actor, req.VersionID)
	if err != nil {
		a.serviceErr(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, a.versionView(r, v, false))
}

func (a *API) handlePublishBulk(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req classRequest
	if !a.decode(w, r, &req) {
		return
	}
	outcomes, err := a.Pub.ReleaseBulk(r.Context(), actor, req.ClassID, req.TermID)
	if err != nil {
		a.serviceErr(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (a *API) handleCurrent(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	studentID, termID, ok := a.studentTermQuery(w, r)
	if !ok {
		return
	}
	v, err := a.Store.CurrentVersion(r.Context(), studentID, termID)
	if err != nil {
		a.serviceErr(w, err)
		return
	}
	if v.SchoolID != actor.SchoolID {
		a.serviceErr(w, report.ErrForbidden)
		return
	}
	a.writeJSON(w, http.StatusOK, a.versionView(r, v, true))
}

func (a *API) handleVersions(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	studentID, termID, ok := a.studentTermQuery(w, r)
	if !ok {
		return
	}
	vs, err := a.Store.Versions(r.Context(), studentID, termID)
	if err != nil {
		a.serviceErr(w, err)
		return
	}
	views := make([]versionView, 0, len(vs))
	for i := range vs {
		if vs[i].SchoolID != actor.SchoolID {
			a.serviceErr(w, report.ErrForbidden)
			return
		}
		views = append(views, a.versionView(r, &vs[i], false))
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"versions": views})
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	if !actor.CanManageReports() {
		a.serviceErr(w, report.ErrForbidden)
		return
	}
	set, err := a.Store.ResultsSettings(r.Context(), actor.SchoolID)
	if err != nil {
		a.serviceErr(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, set)
}

func (a *API) handlePutSettings(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	if actor.Role != models.RoleSchoolAdmin {
		a.serviceErr(w, report.ErrForbidden)
		return
	}
	var set models.SchoolResultsSettings
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		a.writeErr(w, http.StatusBadRequest, err)
		return
	}
	set.SchoolID = actor.SchoolID
	if err := a.validate.Struct(set); err != nil {
		a.writeErr(w, http.StatusBadRequest, err)
		return
	}
	if set.DefaultCATWeight+set.DefaultExamWeight != 100 {
		a.writeErr(w, http.StatusBadRequest, errors.New("default CAT and exam weights must sum to 100"))
		return
	}
	if err := a.Store.UpsertResultsSettings(r.Context(), set); err != nil {
		a.serviceErr(w, err)
		return
	}
	if err := a.Store.Record(r.Context(), report.AuditRecord{
		SchoolID:   actor.SchoolID,
		ActorID:    actor.ID,
		Action:     "schools_results_settings:update",
		ResourceID: actor.SchoolID.String(),
		Summary: fmt.Sprintf("results settings updated: method=%s n=%d cat/exam=%.0f/%.0f",
			set.RankingMethod, set.RankingN, set.DefaultCATWeight, set.DefaultExamWeight),
	}); err != nil {
		a.Log.Warn("audit record failed", zap.Error(err))
	}
	a.writeJSON(w, http.StatusOK, set)
}

func (a *API) handleMarksImport(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	assessmentID, err := uuid.Parse(r.URL.Query().Get("assessment_id"))
	if err != nil {
		a.writeErr(w, http.StatusBadRequest, errors.New("missing or malformed assessment_id"))
		return
	}
	defer func() { _ = r.Body.Close() }()
	n, err := a.Importer.Import(r.Context(), actor, assessmentID, r.Body)
	if err != nil {
		var pe *report.PersistenceError
		switch {
		case errors.Is(err, report.ErrForbidden), errors.Is(err, report.ErrNotFound), errors.As(err, &pe):
			a.serviceErr(w, err)
		default:
			// parse and validation failures in the uploaded sheet
			a.writeErr(w, http.StatusBadRequest, err)
		}
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"imported": n})
}

func (a *API) studentTermQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	studentID, err := uuid.Parse(r.URL.Query().Get("student_id"))
	if err != nil {
		a.writeErr(w, http.StatusBadRequest, errors.New("missing or malformed student_id"))
		return uuid.Nil, uuid.Nil, false
	}
	termID, err := uuid.Parse(r.URL.Query().Get("term_id"))
	if err != nil {
		a.writeErr(w, http.StatusBadRequest, errors.New("missing or malformed term_id"))
		return uuid.Nil, uuid.Nil, false
	}
	return studentID, termID, true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.writeErr(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		a.writeErr(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

type versionView struct {
	ID             uuid.UUID                         `json:"id"`
	StudentID      uuid.UUID                         `json:"student_id"`
	TermID         uuid.UUID                         `json:"term_id"`
	ClassID        uuid.UUID                         `json:"class_id"`
	VersionNumber  int                               `json:"version_number"`
	Status         models.VersionStatus              `json:"status"`
	TotalPoints    float64                           `json:"total_points"`
	MeanPoints     float64                           `json:"mean_points"`
	ClassPosition  int                               `json:"class_position"`
	ClassSize      int                               `json:"class_size"`
	StreamPosition *int                              `json:"stream_position,omitempty"`
	StreamSize     *int                              `json:"stream_size,omitempty"`
	Incomplete     bool                              `json:"incomplete"`
	Attendance     models.AttendanceSummary          `json:"attendance"`
	GeneratedAt    string                            `json:"generated_at"`
	ReleasedAt     *string                           `json:"released_at,omitempty"`
	Subjects       []models.ReportCardVersionSubject `json:"subjects,omitempty"`
	Snapshot       json.RawMessage                   `json:"snapshot,omitempty"`
}

func (a *API) versionView(r *http.Request, v *models.ReportCardVersion, withDetail bool) versionView {
	out := versionView{
		ID:             v.ID,
		StudentID:      v.StudentID,
		TermID:         v.TermID,
		ClassID:        v.ClassID,
		VersionNumber:  v.VersionNumber,
		Status:         v.Status,
		TotalPoints:    v.TotalPoints,
		MeanPoints:     v.MeanPoints,
		ClassPosition:  v.ClassPosition,
		ClassSize:      v.ClassSize,
		StreamPosition: v.StreamPosition,
		StreamSize:     v.StreamSize,
		Incomplete:     v.Incomplete,
		Attendance:     v.Attendance,
		GeneratedAt:    v.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if v.ReleasedAt != nil {
		s := v.ReleasedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		out.ReleasedAt = &s
	}
	if withDetail {
		out.Snapshot = json.RawMessage(v.MarksSnapshot)
		subjects, err := a.Store.VersionSubjects(r.Context(), v.ID)
		if err != nil {
			a.Log.Warn("load version subjects", zap.String("version_id", v.ID.String()), zap.Error(err))
		} else {
			out.Subjects = subjects
		}
	}
	return out
}

func (a *API) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Log.Warn("encode response", zap.Error(err))
	}
}

func (a *API) writeErr(w http.ResponseWriter, code int, err error) {
	a.writeJSON(w, code, map[string]string{"error": err.Error()})
}

// serviceErr maps domain sentinels onto HTTP statuses.
func (a *API) serviceErr(w http.ResponseWriter, err error) {
	var cfg *report.ConfigurationError
	switch {
	case errors.Is(err, report.ErrForbidden):
		a.writeErr(w, http.StatusForbidden, err)
	case errors.Is(err, report.ErrNotFound):
		a.writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, report.ErrAlreadyReleased), errors.Is(err, report.ErrVersionConflict):
		a.writeErr(w, http.StatusConflict, err)
	case errors.As(err, &cfg):
		a.writeErr(w, http.StatusUnprocessableEntity, err)
	default:
		observability.CaptureErr(err)
		a.Log.Error("request failed", zap.Error(err))
		a.writeErr(w, http.StatusInternalServerError, err)
	}
}
