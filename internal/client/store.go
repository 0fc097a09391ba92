package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/deppfellow/escuela/internal/model"
)

// unassigned is shown for a teacher without subjects.
const unassigned = "Sin asignar"

// Snapshot is the last successful fetch of the four collections the
// dashboard renders.
type Snapshot struct {
	Students    []model.Student
	Teachers    []model.Teacher
	Subjects    []model.SubjectWithTeachers
	Enrollments []model.EnrollmentRow
}

// Store keeps a Snapshot in sync with the API. Every mutation is followed
// by a full refetch; a failed refetch keeps the previous snapshot and is
// only logged.
type Store struct {
	client *Client
	logger zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewStore(c *Client, logger zerolog.Logger) *Store {
	return &Store{client: c, logger: logger}
}

func (s *Store) Client() *Client { return s.client }

// Snapshot returns a copy of the current collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Students:    append([]model.Student(nil), s.snap.Students...),
		Teachers:    append([]model.Teacher(nil), s.snap.Teachers...),
		Subjects:    append([]model.SubjectWithTeachers(nil), s.snap.Subjects...),
		Enrollments: append([]model.EnrollmentRow(nil), s.snap.Enrollments...),
	}
}

// Refresh fetches all four collections concurrently. The snapshot is only
// replaced when every fetch succeeds.
func (s *Store) Refresh(ctx context.Context) error {
	var next Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		next.Students, err = s.client.ListStudents(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Teachers, err = s.client.ListTeachers(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Subjects, err = s.client.ListSubjectsWithTeachers(gctx)
		return err
	})
	g.Go(func() (err error) {
		next.Enrollments, err = s.client.ListEnrollments(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("refreshing snapshot: %w", err)
	}

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
	return nil
}

func (s *Store) refreshAfter(ctx context.Context, operation string) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error().Err(err).Str("operation", operation).Msg("refresh after mutation failed")
	}
}

// Login authenticates and loads the first snapshot.
func (s *Store) Login(ctx context.Context, username, password string) error {
	if err := s.client.Login(ctx, username, password); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Logout forgets the token and the cached collections.
func (s *Store) Logout() {
	s.client.Logout()
	s.mu.Lock()
	s.snap = Snapshot{}
	s.mu.Unlock()
}

// EnrollmentOutcome is the result of enrolling in one subject.
type EnrollmentOutcome struct {
	MateriaID int64
	// AlreadyEnrolled is set by Reconcile for subjects that needed no call.
	AlreadyEnrolled bool
	Err             error
}

// EnrollmentReport lists one outcome per requested subject, in request
// order.
type EnrollmentReport struct {
	StudentID int64
	// Student is set when the report comes from CreateStudentWithEnrollments.
	Student  *model.Student
	Outcomes []EnrollmentOutcome
}

// Failed returns the subjects whose enrollment did not go through.
func (r *EnrollmentReport) Failed() []int64 {
	var ids []int64
	for _, o := range r.Outcomes {
		if o.Err != nil {
			ids = append(ids, o.MateriaID)
		}
	}
	return ids
}

// Enrolled returns the subjects the student is now enrolled in.
func (r *EnrollmentReport) Enrolled() []int64 {
	var ids []int64
	for _, o := range r.Outcomes {
		if o.Err == nil {
			ids = append(ids, o.MateriaID)
		}
	}
	return ids
}

func (r *EnrollmentReport) Complete() bool { return len(r.Failed()) == 0 }

// enrollAll enrolls the student in every subject at once and waits for
// all calls. A failure does not cancel the others.
func (s *Store) enrollAll(ctx context.Context, studentID int64, subjectIDs []int64) []EnrollmentOutcome {
	outcomes := make([]EnrollmentOutcome, len(subjectIDs))

	var g errgroup.Group
	for i, subjectID := range subjectIDs {
		outcomes[i].MateriaID = subjectID
		g.Go(func() error {
			if _, err := s.client.Enroll(ctx, studentID, subjectID); err != nil {
				outcomes[i].Err = err
				s.logger.Warn().Err(err).
					Int64("alumno_id", studentID).
					Int64("materia_id", subjectID).
					Msg("enrollment failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// CreateStudentWithEnrollments creates a student and then enrolls them in
// each subject. When the student cannot be created no enrollment is
// attempted and the error is returned. Failed enrollments are reported,
// not undone: the student and every successful enrollment stay. Use
// Reconcile to retry the failed ones.
func (s *Store) CreateStudentWithEnrollments(ctx context.Context, in StudentInput, photo *Photo, subjectIDs []int64) (*EnrollmentReport, error) {
	student, err := s.client.CreateStudent(ctx, in, photo)
	if err != nil {
		return nil, err
	}

	report := &EnrollmentReport{
		StudentID: student.ID,
		Student:   &student,
		Outcomes:  s.enrollAll(ctx, student.ID, dedupe(subjectIDs)),
	}

	s.refreshAfter(ctx, "create_student")
	return report, nil
}

// Reconcile makes sure the student is enrolled in every wanted subject.
// It asks the API which enrollments exist and only retries the missing
// ones.
func (s *Store) Reconcile(ctx context.Context, studentID int64, wanted []int64) (*EnrollmentReport, error) {
	current, err := s.client.StudentSubjects(ctx, studentID)
	if err != nil {
		return nil, err
	}

	enrolled := make(map[int64]bool, len(current))
	for _, subject := range current {
		enrolled[subject.ID] = true
	}

	wanted = dedupe(wanted)
	var missing []int64
	for _, id := range wanted {
		if !enrolled[id] {
			missing = append(missing, id)
		}
	}

	retried := make(map[int64]EnrollmentOutcome, len(missing))
	for _, o := range s.enrollAll(ctx, studentID, missing) {
		retried[o.MateriaID] = o
	}

	report := &EnrollmentReport{StudentID: studentID, Outcomes: make([]EnrollmentOutcome, 0, len(wanted))}
	for _, id := range wanted {
		if o, ok := retried[id]; ok {
			report.Outcomes = append(report.Outcomes, o)
			continue
		}
		report.Outcomes = append(report.Outcomes, EnrollmentOutcome{MateriaID: id, AlreadyEnrolled: true})
	}

	if len(missing) > 0 {
		s.refreshAfter(ctx, "reconcile_enrollments")
	}
	return report, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id int64, in StudentInput) (model.Student, error) {
	student, err := s.client.UpdateStudent(ctx, id, in)
	if err != nil {
		return student, err
	}
	s.refreshAfter(ctx, "update_student")
	return student, nil
}

// DeleteStudent removes the student's enrollments first and then the
// student, so no orphan enrollments are left behind.
func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	if err := s.client.ClearStudentSubjects(ctx, id); err != nil {
		return err
	}
	if err := s.client.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.refreshAfter(ctx, "delete_student")
	return nil
}

func (s *Store) CreateTeacher(ctx context.Context, in TeacherInput, photo *Photo) (model.Teacher, error) {
	teacher, err := s.client.CreateTeacher(ctx, in, photo)
	if err != nil {
		return teacher, err
	}
	s.refreshAfter(ctx, "create_teacher")
	return teacher, nil
}

func (s *Store) CreateSubject(ctx context.Context, nombre string) (model.Subject, error) {
	subject, err := s.client.CreateSubject(ctx, nombre)
	if err != nil {
		return subject, err
	}
	s.refreshAfter(ctx, "create_subject")
	return subject, nil
}

func (s *Store) RenameSubject(ctx context.Context, id int64, nombre string) (model.Subject, error) {
	subject, err := s.client.RenameSubject(ctx, id, nombre)
	if err != nil {
		return subject, err
	}
	s.refreshAfter(ctx, "rename_subject")
	return subject, nil
}

func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	if err := s.client.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.refreshAfter(ctx, "delete_subject")
	return nil
}

func (s *Store) AssignTeachers(ctx context.Context, subjectID int64, teacherIDs []int64) error {
	if err := s.client.AssignTeachers(ctx, subjectID, teacherIDs); err != nil {
		return err
	}
	s.refreshAfter(ctx, "assign_teachers")
	return nil
}

// Stats computes the dashboard figures from the snapshot. Enrollment rows
// repeat once per teacher of the subject, so they are counted as distinct
// student and subject pairs.
func (s *Store) Stats() model.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type pair struct{ alumno, materia string }
	pairs := make(map[pair]struct{}, len(s.snap.Enrollments))
	perSubject := make(map[string]int64)
	for _, row := range s.snap.Enrollments {
		p := pair{row.AlumnoNombre, row.MateriaNombre}
		if _, seen := pairs[p]; seen {
			continue
		}
		pairs[p] = struct{}{}
		perSubject[row.MateriaNombre]++
	}

	bars := make([]model.SubjectEnrollmentCount, 0, len(s.snap.Subjects))
	for _, subject := range s.snap.Subjects {
		bars = append(bars, model.SubjectEnrollmentCount{
			MateriaID: subject.ID,
			Nombre:    subject.Nombre,
			Alumnos:   perSubject[subject.Nombre],
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Nombre < bars[j].Nombre })

	return model.Summary{
		TotalAlumnos:       int64(len(s.snap.Students)),
		TotalMaestros:      int64(len(s.snap.Teachers)),
		TotalMaterias:      int64(len(s.snap.Subjects)),
		TotalInscripciones: int64(len(pairs)),
		AlumnosPorMateria:  bars,
	}
}

func contains(haystack, needle string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(haystack), fold.String(needle))
}

// FilterStudents returns the students whose name or email contains term,
// ignoring case. An empty term matches everyone.
func (s *Store) FilterStudents(term string) []model.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Student
	for _, student := range s.snap.Students {
		if contains(student.Nombre, term) || contains(student.Email, term) {
			out = append(out, student)
		}
	}
	return out
}

// FilterTeachers is FilterStudents for teachers.
func (s *Store) FilterTeachers(term string) []model.Teacher {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Teacher
	for _, teacher := range s.snap.Teachers {
		if contains(teacher.Nombre, term) || contains(teacher.Email, term) {
			out = append(out, teacher)
		}
	}
	return out
}

// TeacherWithSubjects is a teacher row of the dashboard table.
type TeacherWithSubjects struct {
	model.Teacher
	Materias string
}

// TeacherSubjects pairs every teacher with the comma separated names of
// the subjects they teach, or "Sin asignar".
func (s *Store) TeacherSubjects() []TeacherWithSubjects {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[int64][]string)
	for _, subject := range s.snap.Subjects {
		for _, teacher := range subject.Maestros {
			names[teacher.ID] = append(names[teacher.ID], subject.Nombre)
		}
	}

	out := make([]TeacherWithSubjects, 0, len(s.snap.Teachers))
	for _, teacher := range s.snap.Teachers {
		materias := unassigned
		if list := names[teacher.ID]; len(list) > 0 {
			materias = strings.Join(list, ", ")
		}
		out = append(out, TeacherWithSubjects{Teacher: teacher, Materias: materias})
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
