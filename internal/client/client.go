// Package client talks to the escuela API on behalf of the dashboard and
// keeps a local snapshot of its collections (see Store).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deppfellow/escuela/internal/errs"
	"github.com/deppfellow/escuela/internal/model"
)

const defaultTimeout = 10 * time.Second

// Client is a typed wrapper around the HTTP API. It holds the access token
// and forgets it as soon as the API answers 401 or 403.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken starts the client with a previously issued token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) LoggedIn() bool { return c.Token() != "" }

func (c *Client) Logout() { c.setToken("") }

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// StudentInput is the editable part of a student.
type StudentInput struct {
	Nombre string `json:"nombre"`
	Grado  int    `json:"grado"`
	Email  string `json:"email"`
}

// TeacherInput is the editable part of a teacher.
type TeacherInput struct {
	Nombre string
	Email  string
}

// Photo is an image to upload with a new student or teacher.
type Photo struct {
	Filename string
	Content  io.Reader
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("encoding %s %s: %w", method, path, err)
	}
	return request{method: method, path: path, body: bytes.NewReader(raw), contentType: "application/json"}, nil
}

// do sends r and decodes a 2xx body into out. Error bodies are returned as
// *errs.HTTPError.
func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.Logout()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var apiErr errs.HTTPError
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Message == "" {
		apiErr = errs.HTTPError{
			Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(resp.StatusCode)),
			Message: strings.TrimSpace(string(raw)),
		}
	}
	apiErr.Status = resp.StatusCode
	return &apiErr
}

// Login exchanges the admin credentials for a token and keeps it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	r, err := jsonRequest(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, r, &body); err != nil {
		return err
	}
	c.setToken(body.AccessToken)
	return nil
}

func (c *Client) ListStudents(ctx context.Context) ([]model.Student, error) {
	var out []model.Student
	err := c.do(ctx, request{method: http.MethodGet, path: "/alumnos"}, &out)
	return out, err
}

func (c *Client) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	var out []model.Teacher
	err := c.do(ctx, request{method: http.MethodGet, path: "/maestros"}, &out)
	return out, err
}

func (c *Client) ListSubjectsWithTeachers(ctx context.Context) ([]model.SubjectWithTeachers, error) {
	var out []model.SubjectWithTeachers
	err := c.do(ctx, request{method: http.MethodGet, path: "/materias-con-maestros"}, &out)
	return out, err
}

func (c *Client) ListEnrollments(ctx context.Context) ([]model.EnrollmentRow, error) {
	var out []model.EnrollmentRow
	err := c.do(ctx, request{method: http.MethodGet, path: "/inscripciones"}, &out)
	return out, err
}

func (c *Client) Summary(ctx context.Context) (model.Summary, error) {
	var out model.Summary
	err := c.do(ctx, request{method: http.MethodGet, path: "/resumen"}, &out)
	return out, err
}

// multipartRequest builds the form body for the record endpoints that
// accept a photo.
func multipartRequest(path string, fields map[string]string, photo *Photo) (request, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return request{}, err
		}
	}

	if photo != nil {
		part, err := w.CreateFormFile("foto", photo.Filename)
		if err != nil {
			return request{}, err
		}
		if _, err := io.Copy(part, photo.Content); err != nil {
			return request{}, fmt.Errorf("reading photo: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return request{}, err
	}
	return request{method: http.MethodPost, path: path, body: &body, contentType: w.FormDataContentType()}, nil
}

func (c *Client) CreateStudent(ctx context.Context, in StudentInput, photo *Photo) (model.Student, error) {
	var out model.Student
	r, err := multipartRequest("/alumnos", map[string]string{
		"nombre": in.Nombre,
		"grado":  strconv.Itoa(in.Grado),
		"email":  in.Email,
	}, photo)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, r, &out)
	return out, err
}

func (c *Client) UpdateStudent(ctx context.Context, id int64, in StudentInput) (model.Student, error) {
	var out model.Student
	r, err := jsonRequest(http.MethodPut, studentPath(id), in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, r, &out)
	return out, err
}

func (c *Client) DeleteStudent(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: studentPath(id)}, nil)
}

func (c *Client) Enroll(ctx context.Context, studentID, subjectID int64) (model.Enrollment, error) {
	var out model.Enrollment
	r, err := jsonRequest(http.MethodPost, studentPath(studentID)+"/materias", map[string]int64{"materia_id": subjectID})
	if err != nil {
		return out, err
	}
	err = c.do(ctx, r, &out)
	return out, err
}

func (c *Client) StudentSubjects(ctx context.Context, studentID int64) ([]model.Subject, error) {
	var out []model.Subject
	err := c.do(ctx, request{method: http.MethodGet, path: studentPath(studentID) + "/materias"}, &out)
	return out, err
}

func (c *Client) ClearStudentSubjects(ctx context.Context, studentID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: studentPath(studentID) + "/materias"}, nil)
}

func (c *Client) CreateTeacher(ctx context.Context, in TeacherInput, photo *Photo) (model.Teacher, error) {
	var out model.Teacher
	r, err := multipartRequest("/maestros", map[string]string{
		"nombre": in.Nombre,
		"email":  in.Email,
	}, photo)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, r, &out)
	return out, err
}

func (c *Client) CreateSubject(ctx context.Context, nombre string) (model.Subject, error) {
	var out model.Subject
	r, err := jsonRequest(http.MethodPost, "/materias", map[string]string{"nombre": nombre})
	if err != nil {
		return out, err
	}
	err = c.do(ctx, r, &out)
	return out, err
}

func (c *Client) RenameSubject(ctx context.Context, id int64, nombre string) (model.Subject, error) {
	var out model.Subject
	r, err := jsonRequest(http.MethodPut, subjectPath(id), map[string]string{"nombre": nombre})
	if err != nil {
		return out, err
	}
	err = c.do(ctx, r, &out)
	return out, err
}

func (c *Client) DeleteSubject(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: subjectPath(id)}, nil)
}

// AssignTeachers replaces the full set of teachers of a subject.
func (c *Client) AssignTeachers(ctx context.Context, subjectID int64, teacherIDs []int64) error {
	if teacherIDs == nil {
		teacherIDs = []int64{}
	}
	r, err := jsonRequest(http.MethodPut, subjectPath(subjectID)+"/maestros", map[string][]int64{"maestro_ids": teacherIDs})
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

func studentPath(id int64) string { return "/alumnos/" + strconv.FormatInt(id, 10) }

func subjectPath(id int64) string { return "/materias/" + strconv.FormatInt(id, 10) }
