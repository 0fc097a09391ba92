package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/model"
)

// fakeAPI is an in-memory stand-in for the escuela API.
type fakeAPI struct {
	mu sync.Mutex

	students    []model.Student
	teachers    []model.Teacher
	subjects    []model.SubjectWithTeachers
	enrollments map[int64][]int64

	// failEnroll makes POST /alumnos/{id}/materias fail for these subjects.
	failEnroll  map[int64]bool
	failCreate  bool
	enrollCalls []int64
	calls       []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		enrollments: make(map[int64][]int64),
		failEnroll:  make(map[int64]bool),
		subjects: []model.SubjectWithTeachers{
			{ID: 1, Nombre: "Arte", Maestros: []model.TeacherRef{{ID: 10, Nombre: "Rosa"}}},
			{ID: 2, Nombre: "Física", Maestros: []model.TeacherRef{}},
			{ID: 3, Nombre: "Historia", Maestros: []model.TeacherRef{{ID: 10, Nombre: "Rosa"}, {ID: 11, Nombre: "Juan"}}},
		},
		teachers: []model.Teacher{
			{ID: 10, Nombre: "Rosa", Email: "rosa@escuela.mx"},
			{ID: 11, Nombre: "Juan", Email: "juan@escuela.mx"},
			{ID: 12, Nombre: "Elena", Email: "ELENA@escuela.mx"},
		},
	}
}

func (f *fakeAPI) pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func (f *fakeAPI) subjectName(id int64) string {
	for _, s := range f.subjects {
		if s.ID == id {
			return s.Nombre
		}
	}
	return ""
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	record := func(name string) {
		f.calls = append(f.calls, name)
	}

	mux.HandleFunc("GET /alumnos", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.students)
	})
	mux.HandleFunc("GET /maestros", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.teachers)
	})
	mux.HandleFunc("GET /materias-con-maestros", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.subjects)
	})
	mux.HandleFunc("GET /inscripciones", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		rows := []model.EnrollmentRow{}
		for _, student := range f.students {
			for _, subjectID := range f.enrollments[student.ID] {
				for _, subject := range f.subjects {
					if subject.ID != subjectID {
						continue
					}
					if len(subject.Maestros) == 0 {
						rows = append(rows, model.EnrollmentRow{AlumnoNombre: student.Nombre, MateriaNombre: subject.Nombre})
					}
					for _, teacher := range subject.Maestros {
						name := teacher.Nombre
						rows = append(rows, model.EnrollmentRow{AlumnoNombre: student.Nombre, MateriaNombre: subject.Nombre, MaestroNombre: &name})
					}
				}
			}
		}
		writeJSON(w, http.StatusOK, rows)
	})
	mux.HandleFunc("POST /alumnos", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		record("create_student")
		if f.failCreate {
			writeJSON(w, http.StatusBadRequest, errs.HTTPError{Code: "BAD_REQUEST", Message: "Validation failed"})
			return
		}
		grado, _ := strconv.Atoi(r.FormValue("grado"))
		student := model.Student{ID: int64(len(f.students) + 1), Nombre: r.FormValue("nombre"), Grado: grado, Email: r.FormValue("email")}
		f.students = append(f.students, student)
		writeJSON(w, http.StatusCreated, student)
	})
	mux.HandleFunc("POST /alumnos/{id}/materias", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			MateriaID int64 `json:"materia_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.enrollCalls = append(f.enrollCalls, body.MateriaID)
		if f.failEnroll[body.MateriaID] {
			writeJSON(w, http.StatusInternalServerError, errs.HTTPError{Code: "INTERNAL_SERVER_ERROR", Message: "Internal Server Error"})
			return
		}
		id := f.pathID(r)
		f.enrollments[id] = append(f.enrollments[id], body.MateriaID)
		writeJSON(w, http.StatusCreated, model.Enrollment{AlumnoID: id, MateriaID: body.MateriaID})
	})
	mux.HandleFunc("GET /alumnos/{id}/materias", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []model.Subject{}
		for _, subjectID := range f.enrollments[f.pathID(r)] {
			out = append(out, model.Subject{ID: subjectID, Nombre: f.subjectName(subjectID)})
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("DELETE /alumnos/{id}/materias", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		record("clear_subjects")
		delete(f.enrollments, f.pathID(r))
		writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Materias del alumno eliminadas"})
	})
	mux.HandleFunc("DELETE /alumnos/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		record("delete_student")
		id := f.pathID(r)
		for i, student := range f.students {
			if student.ID == id {
				f.students = append(f.students[:i], f.students[i+1:]...)
				writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Alumno eliminado"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, errs.HTTPError{Code: "NOT_FOUND", Message: "Alumno not found"})
	})

	return mux
}

func newTestStore(t *testing.T, api *fakeAPI) *Store {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return NewStore(New(srv.URL, WithToken("tok")), zerolog.Nop())
}

func TestCreateStudentWithEnrollmentsKeepsPartialProgress(t *testing.T) {
	api := newFakeAPI()
	api.failEnroll[2] = true
	store := newTestStore(t, api)

	report, err := store.CreateStudentWithEnrollments(context.Background(),
		StudentInput{Nombre: "Ana", Grado: 3, Email: "ana@escuela.mx"}, nil, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Student == nil || report.StudentID != 1 {
		t.Fatalf("unexpected report student %+v", report)
	}
	if len(report.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(report.Outcomes))
	}
	for i, want := range []int64{1, 2, 3} {
		if report.Outcomes[i].MateriaID != want {
			t.Fatalf("outcome %d is for subject %d, want %d", i, report.Outcomes[i].MateriaID, want)
		}
	}
	if report.Outcomes[1].Err == nil || report.Outcomes[0].Err != nil || report.Outcomes[2].Err != nil {
		t.Fatalf("unexpected outcomes %+v", report.Outcomes)
	}
	if report.Complete() {
		t.Fatalf("report should not be complete")
	}
	if failed := report.Failed(); len(failed) != 1 || failed[0] != 2 {
		t.Fatalf("unexpected failed list %v", failed)
	}

	snap := store.Snapshot()
	if len(snap.Students) != 1 {
		t.Fatalf("student should stay after a failed enrollment, snapshot %+v", snap.Students)
	}
	if got := store.Stats(); got.TotalInscripciones != 2 {
		t.Fatalf("expected 2 enrollments, got %d", got.TotalInscripciones)
	}

	// The retry only touches the subject that failed.
	api.mu.Lock()
	delete(api.failEnroll, 2)
	api.enrollCalls = nil
	api.mu.Unlock()

	retry, err := store.Reconcile(context.Background(), report.StudentID, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("reconcile error: %v", err)
	}
	if !retry.Complete() {
		t.Fatalf("reconcile left failures: %+v", retry.Outcomes)
	}
	if !retry.Outcomes[0].AlreadyEnrolled || retry.Outcomes[1].AlreadyEnrolled || !retry.Outcomes[2].AlreadyEnrolled {
		t.Fatalf("unexpected reconcile outcomes %+v", retry.Outcomes)
	}

	api.mu.Lock()
	calls := append([]int64(nil), api.enrollCalls...)
	api.mu.Unlock()
	if len(calls) != 1 || calls[0] != 2 {
		t.Fatalf("expected a single retry for subject 2, got %v", calls)
	}
}

func TestCreateStudentFailureSkipsEnrollments(t *testing.T) {
	api := newFakeAPI()
	api.failCreate = true
	store := newTestStore(t, api)

	report, err := store.CreateStudentWithEnrollments(context.Background(),
		StudentInput{Nombre: "Ana", Grado: 3, Email: "ana@escuela.mx"}, nil, []int64{1, 2})

	var apiErr *errs.HTTPError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected a 400 error, got %v", err)
	}
	if report != nil {
		t.Fatalf("expected no report, got %+v", report)
	}
	if len(api.enrollCalls) != 0 {
		t.Fatalf("no enrollment should be attempted, got %v", api.enrollCalls)
	}
}

func TestDeleteStudentClearsEnrollmentsFirst(t *testing.T) {
	api := newFakeAPI()
	store := newTestStore(t, api)

	if _, err := store.CreateStudentWithEnrollments(context.Background(),
		StudentInput{Nombre: "Ana", Grado: 3, Email: "ana@escuela.mx"}, nil, []int64{1}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	if err := store.DeleteStudent(context.Background(), 1); err != nil {
		t.Fatalf("delete error: %v", err)
	}

	api.mu.Lock()
	calls := api.calls
	api.mu.Unlock()
	if len(calls) != 3 || calls[1] != "clear_subjects" || calls[2] != "delete_student" {
		t.Fatalf("unexpected call order %v", calls)
	}

	snap := store.Snapshot()
	if len(snap.Students) != 0 || len(snap.Enrollments) != 0 {
		t.Fatalf("snapshot not refreshed: %+v", snap)
	}
}

func TestStatsCountsDistinctPairs(t *testing.T) {
	api := newFakeAPI()
	store := newTestStore(t, api)

	// Historia has two teachers, so its enrollment appears twice in
	// /inscripciones.
	if _, err := store.CreateStudentWithEnrollments(context.Background(),
		StudentInput{Nombre: "Ana", Grado: 3, Email: "ana@escuela.mx"}, nil, []int64{1, 3}); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := store.CreateStudentWithEnrollments(context.Background(),
		StudentInput{Nombre: "Luis", Grado: 4, Email: "luis@escuela.mx"}, nil, []int64{3}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	stats := store.Stats()
	if stats.TotalAlumnos != 2 || stats.TotalMaestros != 3 || stats.TotalMaterias != 3 || stats.TotalInscripciones != 3 {
		t.Fatalf("unexpected totals %+v", stats)
	}

	want := map[string]int64{"Arte": 1, "Física": 0, "Historia": 2}
	if len(stats.AlumnosPorMateria) != 3 {
		t.Fatalf("unexpected bars %+v", stats.AlumnosPorMateria)
	}
	for _, bar := range stats.AlumnosPorMateria {
		if bar.Alumnos != want[bar.Nombre] {
			t.Fatalf("subject %s: got %d students, want %d", bar.Nombre, bar.Alumnos, want[bar.Nombre])
		}
	}
}

func TestTeacherSubjectsAndFilters(t *testing.T) {
	api := newFakeAPI()
	store := newTestStore(t, api)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh error: %v", err)
	}

	rows := store.TeacherSubjects()
	got := make(map[string]string, len(rows))
	for _, row := range rows {
		got[row.Nombre] = row.Materias
	}
	if got["Rosa"] != "Arte, Historia" || got["Juan"] != "Historia" || got["Elena"] != "Sin asignar" {
		t.Fatalf("unexpected teacher subjects %v", got)
	}

	if found := store.FilterTeachers("elena@"); len(found) != 1 || found[0].ID != 12 {
		t.Fatalf("case-insensitive email search failed: %+v", found)
	}
	if found := store.FilterTeachers("RO"); len(found) != 1 || found[0].Nombre != "Rosa" {
		t.Fatalf("name search failed: %+v", found)
	}
	if found := store.FilterTeachers(""); len(found) != 3 {
		t.Fatalf("empty term should match all, got %d", len(found))
	}
}

func TestRefreshKeepsSnapshotOnFailure(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	store := NewStore(New(srv.URL, WithToken("tok")), zerolog.Nop())

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh error: %v", err)
	}
	srv.Close()

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh to fail with the server gone")
	}
	if len(store.Snapshot().Teachers) != 3 {
		t.Fatalf("snapshot should be kept after a failed refresh")
	}
}
