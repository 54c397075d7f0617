package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"taskzen/internal/auth"
	"taskzen/internal/avatars"
	"taskzen/internal/events"
	"taskzen/internal/models"
	"taskzen/internal/service"
	"taskzen/internal/storage/sqlite"
)

type testAPI struct {
	t     *testing.T
	srv   *Server
	token string
}

func newTestAPI(t *testing.T, staticDir string) *testAPI {
	t.Helper()
	store, err := sqlite.Open(sqlite.DriverPure, filepath.Join(t.TempDir(), "taskzen.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	a, err := auth.New(auth.Config{Secret: "test-secret", Issuer: "taskzen", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("new auth: %v", err)
	}
	svc := service.New(service.Options{
		Store:   store,
		Auth:    a,
		Avatars: avatars.New(afero.NewMemMapFs(), 1024),
		Bus:     events.NewLocalBus(),
	})
	return &testAPI{t: t, srv: New(svc, nil, staticDir)}
}

func (api *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	api.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			api.t.Fatalf("encode body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if api.token != "" {
		req.Header.Set("Authorization", "Bearer "+api.token)
	}
	rec := httptest.NewRecorder()
	api.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func (api *testAPI) decode(rec *httptest.ResponseRecorder, wantStatus int, dst any) {
	api.t.Helper()
	if rec.Code != wantStatus {
		api.t.Fatalf("expected status %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	if dst == nil {
		return
	}
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		api.t.Fatalf("decode response: %v", err)
	}
}

func (api *testAPI) signUp(email string) models.User {
	api.t.Helper()
	var sess service.Session
	api.decode(api.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Ann", "email": email, "password": "secret1",
	}), http.StatusCreated, &sess)
	api.token = sess.Token.AccessToken
	return sess.User
}

func (api *testAPI) createProject(name string) models.Project {
	api.t.Helper()
	var resp struct {
		Project models.Project `json:"project"`
	}
	api.decode(api.do(http.MethodPost, "/api/projects", map[string]string{"name": name}), http.StatusCreated, &resp)
	return resp.Project
}

func (api *testAPI) addColumn(projectID, title string) models.Column {
	api.t.Helper()
	var resp struct {
		Column models.Column `json:"column"`
	}
	api.decode(api.do(http.MethodPost, "/api/projects/"+projectID+"/columns", map[string]string{"title": title}), http.StatusCreated, &resp)
	return resp.Column
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, "")
	var body map[string]string
	api.decode(api.do(http.MethodGet, "/api/healthz", nil), http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, "")

	rec := api.do(http.MethodGet, "/api/projects", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	user := api.signUp("ann@example.com")

	rec = api.do(http.MethodPost, "/api/auth/signup", map[string]string{"name": "Ann", "email": "ann@example.com", "password": "secret1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
	rec = api.do(http.MethodPost, "/api/auth/signup", map[string]string{"name": "A", "email": "a@example.com", "password": "secret1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short name, got %d", rec.Code)
	}

	var sess service.Session
	api.decode(api.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ann@example.com", "password": "secret1"}), http.StatusOK, &sess)
	if sess.User.ID != user.ID {
		t.Fatalf("unexpected login user: %+v", sess.User)
	}
	rec = api.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ann@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	var profile struct {
		User models.User `json:"user"`
	}
	api.decode(api.do(http.MethodGet, "/api/profile", nil), http.StatusOK, &profile)
	if profile.User.Email != "ann@example.com" {
		t.Fatalf("unexpected profile: %+v", profile.User)
	}
	if strings.Contains(api.do(http.MethodGet, "/api/profile", nil).Body.String(), "password") {
		t.Fatal("password hash must never be serialized")
	}

	api.decode(api.do(http.MethodPut, "/api/profile", map[string]string{"name": "Anna", "email": "anna@example.com"}), http.StatusOK, &profile)
	if profile.User.Name != "Anna" {
		t.Fatalf("unexpected updated profile: %+v", profile.User)
	}

	rec = api.do(http.MethodDelete, "/api/profile", map[string]string{"password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
	api.decode(api.do(http.MethodDelete, "/api/profile", map[string]string{"password": "secret1"}), http.StatusOK, nil)
	if rec := api.do(http.MethodGet, "/api/profile", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after account deletion, got %d", rec.Code)
	}
}

func TestBadAuthorizationHeader(t *testing.T) {
	api := newTestAPI(t, "")
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	api.srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "bad auth header") {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestProjectLifecycle(t *testing.T) {
	api := newTestAPI(t, "")
	api.signUp("ann@example.com")

	p := api.createProject("Launch")
	if p.Icon != "Folder" || p.Color != "hsl(var(--chart-1))" {
		t.Fatalf("unexpected defaults: %+v", p)
	}

	rec := api.do(http.MethodPost, "/api/projects", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without name, got %d", rec.Code)
	}

	var resp struct {
		Project models.Project `json:"project"`
	}
	api.decode(api.do(http.MethodPut, "/api/projects/"+p.ID, map[string]string{"name": "Relaunch", "icon": "Rocket"}), http.StatusOK, &resp)
	if resp.Project.Name != "Relaunch" || resp.Project.Icon != "Rocket" {
		t.Fatalf("unexpected project: %+v", resp.Project)
	}

	var list struct {
		Projects []models.Project `json:"projects"`
	}
	api.decode(api.do(http.MethodGet, "/api/projects", nil), http.StatusOK, &list)
	if len(list.Projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list.Projects))
	}

	api.signUp("bob@example.com")
	if rec := api.do(http.MethodGet, "/api/projects/"+p.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's project, got %d", rec.Code)
	}
	if rec := api.do(http.MethodDelete, "/api/projects/"+p.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when deleting another user's project, got %d", rec.Code)
	}
}

func TestBoardFlow(t *testing.T) {
	api := newTestAPI(t, "")
	api.signUp("ann@example.com")
	p := api.createProject("Launch")
	base := "/api/projects/" + p.ID

	rec := api.do(http.MethodPost, base+"/tasks", map[string]any{"name": "x", "no_deadline": true})
	if rec.Code != http.StatusBadRequest || !strings.Contains(errorMessage(t, rec), "no columns") {
		t.Fatalf("expected no columns error, got %d %s", rec.Code, rec.Body.String())
	}

	todo := api.addColumn(p.ID, "Todo")
	var defaultCol struct {
		Column models.Column `json:"column"`
	}
	api.decode(api.do(http.MethodPost, base+"/columns", nil), http.StatusCreated, &defaultCol)
	if defaultCol.Column.Title != models.DefaultColumnTitle {
		t.Fatalf("unexpected default title %q", defaultCol.Column.Title)
	}
	done := defaultCol.Column
	api.decode(api.do(http.MethodPut, base+"/columns/"+done.ID, map[string]string{"title": "Done"}), http.StatusOK, nil)

	var created struct {
		Task models.Task `json:"task"`
	}
	api.decode(api.do(http.MethodPost, base+"/tasks", map[string]any{"name": "a", "deadline": "2024-07-01", "priority": "high"}), http.StatusCreated, &created)
	a := created.Task
	if a.Status != todo.ID || a.Deadline.String() != "2024-07-01" {
		t.Fatalf("unexpected task: %+v", a)
	}
	api.decode(api.do(http.MethodPost, base+"/tasks", map[string]any{"name": "b", "no_deadline": true}), http.StatusCreated, &created)
	b := created.Task

	if rec := api.do(http.MethodPost, base+"/tasks", map[string]any{"name": "c"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without deadline, got %d", rec.Code)
	}
	if rec := api.do(http.MethodPost, base+"/tasks", map[string]any{"name": "c", "deadline": "tomorrow"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad deadline, got %d", rec.Code)
	}

	var moved struct {
		Tasks []models.Task `json:"tasks"`
	}
	api.decode(api.do(http.MethodPost, base+"/tasks/move", map[string]any{
		"task_id": b.ID, "source_column": todo.ID, "source_index": 1,
		"destination_column": done.ID, "destination_index": 0,
	}), http.StatusOK, &moved)
	for _, task := range moved.Tasks {
		if task.ID == b.ID && (task.Status != done.ID || task.Order != 0) {
			t.Fatalf("unexpected moved task: %+v", task)
		}
	}

	if rec := api.do(http.MethodPost, base+"/tasks/move", map[string]any{
		"source_column": todo.ID, "destination_column": done.ID, "destination_index": 0,
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing source index, got %d", rec.Code)
	}

	var toggled struct {
		Task models.Task `json:"task"`
	}
	api.decode(api.do(http.MethodPost, base+"/tasks/"+a.ID+"/toggle", nil), http.StatusOK, &toggled)
	if !toggled.Task.Completed {
		t.Fatal("expected task to be completed")
	}

	var cols struct {
		Columns []models.Column `json:"columns"`
	}
	api.decode(api.do(http.MethodPost, base+"/columns/move", map[string]int{"from": 1, "to": 0}), http.StatusOK, &cols)
	if cols.Columns[0].ID != done.ID {
		t.Fatalf("unexpected column order: %+v", cols.Columns)
	}

	var board struct {
		Board models.Board `json:"board"`
	}
	api.decode(api.do(http.MethodGet, base+"/board", nil), http.StatusOK, &board)
	if len(board.Board.Columns) != 2 || len(board.Board.Tasks) != 2 || board.Board.Project.ID != p.ID {
		t.Fatalf("unexpected board: %+v", board.Board)
	}

	var stats struct {
		Stats struct {
			Summary struct {
				Total    int `json:"total"`
				Progress int `json:"progress"`
			} `json:"summary"`
		} `json:"stats"`
	}
	api.decode(api.do(http.MethodGet, base+"/stats", nil), http.StatusOK, &stats)
	if stats.Stats.Summary.Total != 2 || stats.Stats.Summary.Progress != 50 {
		t.Fatalf("unexpected stats: %+v", stats.Stats)
	}
	api.decode(api.do(http.MethodGet, "/api/stats", nil), http.StatusOK, &stats)
	if stats.Stats.Summary.Total != 2 {
		t.Fatalf("unexpected overview: %+v", stats.Stats)
	}

	rec = api.do(http.MethodGet, base+"/export?format=yaml", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/yaml") {
		t.Fatalf("unexpected export response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "Launch.yaml") || !strings.Contains(rec.Body.String(), "name: Launch") {
		t.Fatalf("unexpected export body:\n%s", rec.Body.String())
	}
	if rec := api.do(http.MethodGet, base+"/export?format=xml", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rec.Code)
	}

	api.decode(api.do(http.MethodDelete, base+"/columns/"+todo.ID, nil), http.StatusOK, nil)
	var tasks struct {
		Tasks []models.Task `json:"tasks"`
	}
	api.decode(api.do(http.MethodGet, base+"/tasks", nil), http.StatusOK, &tasks)
	if len(tasks.Tasks) != 1 || tasks.Tasks[0].ID != b.ID {
		t.Fatalf("expected only task b to survive, got %+v", tasks.Tasks)
	}

	api.decode(api.do(http.MethodDelete, base+"/tasks/"+b.ID, nil), http.StatusOK, nil)
	if rec := api.do(http.MethodDelete, base+"/tasks/"+b.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAvatarUpload(t *testing.T) {
	api := newTestAPI(t, "")
	api.signUp("ann@example.com")

	upload := func(data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("avatar", "me.png")
		_, _ = part.Write(data)
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPut, "/api/profile/avatar", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+api.token)
		rec := httptest.NewRecorder()
		api.srv.Engine().ServeHTTP(rec, req)
		return rec
	}

	if rec := upload([]byte("plain text")); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image, got %d", rec.Code)
	}
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d}
	var resp struct {
		User models.User `json:"user"`
	}
	api.decode(upload(png), http.StatusOK, &resp)
	if resp.User.PhotoURL != service.AvatarURL {
		t.Fatalf("unexpected photo url %q", resp.User.PhotoURL)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/profile/avatar?access_token="+api.token, nil)
	rec := httptest.NewRecorder()
	api.srv.Engine().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" || !bytes.Equal(rec.Body.Bytes(), png) {
		t.Fatalf("unexpected avatar response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(png)) {
		t.Fatalf("content length = %q, want %d", got, len(png))
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, max-age=60" {
		t.Fatalf("cache control = %q", got)
	}
}

func TestEventsStream(t *testing.T) {
	api := newTestAPI(t, "")
	api.signUp("ann@example.com")

	ts := httptest.NewServer(api.srv.Engine())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events?access_token="+api.token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	waitFor := func(event string) {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.TrimSpace(line) == "event:"+event {
				return
			}
		}
	}
	waitFor("ready")

	api.createProject("Live")
	waitFor(events.ProjectCreated)
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	api := newTestAPI(t, dir)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<html>app</html>"},
		{"/projects/123", http.StatusOK, "<html>app</html>"},
		{"/assets/app.js", http.StatusOK, "console.log(1)"},
		{"/api/unknown", http.StatusNotFound, "endpoint not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := api.do(http.MethodGet, tt.path, nil)
			if rec.Code != tt.status || !strings.Contains(rec.Body.String(), tt.body) {
				t.Fatalf("GET %s = %d %q", tt.path, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAPIOnlyMode(t *testing.T) {
	api := newTestAPI(t, "")
	rec := api.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without static dir, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.Invalid("bad"), http.StatusBadRequest},
		{models.NotFound("task"), http.StatusNotFound},
		{models.ErrConflict, http.StatusConflict},
		{models.ErrUnauthorized, http.StatusUnauthorized},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
