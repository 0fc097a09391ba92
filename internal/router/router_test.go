package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/deppfellow/escuela/internal/config"
	"github.com/deppfellow/escuela/internal/handler"
	"github.com/deppfellow/escuela/internal/lib/storage"
	"github.com/deppfellow/escuela/internal/model"
	"github.com/deppfellow/escuela/internal/repository"
	"github.com/deppfellow/escuela/internal/server"
	"github.com/deppfellow/escuela/internal/service"
)

const (
	testSecret   = "router-test-secret-key"
	testUser     = "admin"
	testPassword = "s3cret-pass"
)

type testApp struct {
	router *echo.Echo
	mock   pgxmock.PgxPoolIface
	token  string
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	storageCfg := config.StorageConfig{
		UploadsDir:    filepath.Join(t.TempDir(), "uploads"),
		PublicPath:    "/uploads/",
		MaxUploadSize: 5 << 20,
	}
	photos, err := storage.NewLocalStore(storageCfg)
	if err != nil {
		t.Fatalf("photo store: %v", err)
	}

	logger := zerolog.Nop()
	s := &server.Server{
		Config: &config.Config{
			Primary: config.Primary{Env: "test"},
			Server:  config.ServerConfig{CORSAllowedOrigins: []string{"http://localhost:5173"}},
			Auth:    config.AuthConfig{SecretKey: testSecret},
			Admin:   config.AdminConfig{Username: testUser, PasswordHash: string(hash)},
			Storage: storageCfg,
		},
		Logger: &logger,
		Photos: photos,
	}

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock pool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})

	services, err := service.NewServices(s, repository.NewRepositories(mock))
	if err != nil {
		t.Fatalf("services: %v", err)
	}

	app := &testApp{
		router: NewRouter(s, handler.NewHandlers(s, services), services),
		mock:   mock,
	}
	app.token = app.login(t)
	return app
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if a.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", `{"username":"`+testUser+`","password":"`+testPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body handler.LoginResponse
	decode(t, rec, &body)
	if body.AccessToken == "" {
		t.Fatalf("login returned no token")
	}
	return body.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.token = ""

	rec := app.do(t, http.MethodPost, "/login", `{"username":"admin","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Credenciales incorrectas") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestProtectedRoutesNeedValidToken(t *testing.T) {
	app := newTestApp(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		Username: testUser,
		Role:     service.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-9 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not.a.jwt", http.StatusForbidden},
		{"expired", expired, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.token = tt.token
			rec := app.do(t, http.MethodGet, "/alumnos", "")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreatedSubjectListedWithoutTeachers(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery(q("INSERT INTO materias (nombre)")).
		WithArgs("Math").
		WillReturnRows(pgxmock.NewRows([]string{"id", "nombre"}).AddRow(int64(1), "Math"))

	rec := app.do(t, http.MethodPost, "/materias", `{"nombre":"Math"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created model.Subject
	decode(t, rec, &created)
	if created.ID != 1 || created.Nombre != "Math" {
		t.Fatalf("unexpected subject %+v", created)
	}

	app.mock.ExpectQuery(q("json_build_object('id', ma.id, 'nombre', ma.nombre)")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "nombre", "maestros"}).
			AddRow(int64(1), "Math", []byte("[]")))

	rec = app.do(t, http.MethodGet, "/materias-con-maestros", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `[{"id":1,"nombre":"Math","maestros":[]}]` {
		t.Fatalf("unexpected listing %s", got)
	}
}

func TestAssignTeachers(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectBegin()
	app.mock.ExpectQuery(q("SELECT id FROM materias WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	app.mock.ExpectExec(q("DELETE FROM maestros_materias WHERE materia_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	for _, id := range []int64{5, 7} {
		app.mock.ExpectExec(q("INSERT INTO maestros_materias (materia_id, maestro_id)")).
			WithArgs(int64(1), id).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	app.mock.ExpectCommit()

	rec := app.do(t, http.MethodPut, "/materias/1/maestros", `{"maestro_ids":[5,7]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body model.MessageResponse
	decode(t, rec, &body)
	if body.Message != "Maestros asignados" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestDeleteStudentLeavesEnrollments(t *testing.T) {
	app := newTestApp(t)

	// Only the student row is touched; any statement on alumnos_materias
	// would be an unexpected call for the mock.
	app.mock.ExpectQuery(q("DELETE FROM alumnos WHERE id = $1 RETURNING foto_url")).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"foto_url"}).AddRow((*string)(nil)))

	rec := app.do(t, http.MethodDelete, "/alumnos/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Alumno eliminado") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestUpdateMissingStudentIsNotFound(t *testing.T) {
	app := newTestApp(t)

	app.mock.ExpectQuery(q("UPDATE alumnos")).
		WithArgs("Ana", 2, "ana@escuela.mx", int64(99)).
		WillReturnError(pgx.ErrNoRows)

	rec := app.do(t, http.MethodPut, "/alumnos/99", `{"nombre":"Ana","grado":2,"email":"ana@escuela.mx"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestCreateStudentWithPhoto(t *testing.T) {
	app := newTestApp(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("nombre", "Ana")
	_ = w.WriteField("grado", "3")
	_ = w.WriteField("email", "ana@escuela.mx")
	_ = w.WriteField("materias", "1")
	part, err := w.CreateFormFile("foto", "ana.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...))
	_ = w.Close()

	app.mock.ExpectQuery(q("INSERT INTO alumnos (nombre, grado, email, foto_url)")).
		WithArgs("Ana", 3, "ana@escuela.mx", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "nombre", "grado", "email", "foto_url"}).
			AddRow(int64(1), "Ana", 3, "ana@escuela.mx", strPtr("/uploads/foto-1-1.png")))

	req := httptest.NewRequest(http.MethodPost, "/alumnos", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+app.token)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created model.Student
	decode(t, rec, &created)
	if created.ID != 1 || created.FotoURL == nil {
		t.Fatalf("unexpected student %+v", created)
	}
}

func TestSystemRoutesArePublic(t *testing.T) {
	app := newTestApp(t)
	app.token = ""

	rec := app.do(t, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = app.do(t, http.MethodGet, "/docs", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/docs/openapi.json") {
		t.Fatalf("docs: unexpected response %d", rec.Code)
	}

	rec = app.do(t, http.MethodGet, "/docs/openapi.json", "")
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	decode(t, rec, &doc)
	for _, path := range []string{"/login", "/alumnos/{id}/materias", "/materias/{id}/maestros", "/resumen"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("openapi document is missing %s", path)
		}
	}
}

func strPtr(s string) *string { return &s }
