package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"today-planner/internal/assistant"
	"today-planner/internal/auth"
	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/repository"
	"today-planner/internal/service"
	"today-planner/internal/testutil"
)

const defaultEmail = "demo@notton.ai"

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	user   *model.User
	work   *model.Category
	audit  *repository.AuditRepository
}

type MockChatter struct {
	ChatFunc func(ctx context.Context, owner, message string) (assistant.ChatResult, error)
}

func (m *MockChatter) Chat(ctx context.Context, owner, message string) (assistant.ChatResult, error) {
	return m.ChatFunc(ctx, owner, message)
}

func setupTestRouter(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	l := logging.Discard()
	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepository(db)
	tasks := repository.NewTaskRepository(db)
	audit := repository.NewAuditRepository(db)

	seed := service.NewSeedService(users, categories, tasks, l)
	user, err := seed.Run(context.Background(), service.SeedOptions{Email: defaultEmail})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, err := categories.ListByUser(context.Background(), user.ID)
	if err != nil || len(list) == 0 {
		t.Fatalf("seeded categories: %v", err)
	}

	deps := Deps{
		Tasks:      service.NewTaskService(db, tasks, categories, users, audit, l),
		Categories: service.NewCategoryService(categories, audit, l),
		Contexts:   service.NewContextService(tasks, categories, 0),
		Owners:     NewIdentity(nil, users, defaultEmail),
		Log:        l,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		router: NewRouter(deps),
		db:     db,
		user:   user,
		work:   &list[0],
		audit:  audit,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createTask(t *testing.T, title string, addToToday bool) model.Task {
	t.Helper()
	w := e.do(t, "POST", "/tasks", map[string]any{
		"title":           title,
		"categoryId":      e.work.ID,
		"durationMinutes": 30,
		"energyLevel":     "med",
		"source":          "manual",
		"addToToday":      addToToday,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var task model.Task
	json.Unmarshal(w.Body.Bytes(), &task)
	return task
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	env := setupTestRouter(t)
	w := env.do(t, "GET", "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestRouter(t)
	req, _ := http.NewRequest("OPTIONS", "/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected permissive origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCreateTaskDurationCoercion(t *testing.T) {
	env := setupTestRouter(t)

	for _, duration := range []any{"30", 30} {
		w := env.do(t, "POST", "/tasks", map[string]any{
			"title":           "Coerce me",
			"categoryId":      env.work.ID,
			"durationMinutes": duration,
			"energyLevel":     "low",
			"source":          "manual",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201 for %v, got %d: %s", duration, w.Code, w.Body.String())
		}
		raw := decode[map[string]any](t, w)
		if raw["durationMinutes"] != float64(30) {
			t.Errorf("Expected integer 30 for %v, got %v", duration, raw["durationMinutes"])
		}
	}

	var stored []model.Task
	env.db.Find(&stored)
	for _, task := range stored {
		if task.DurationMinutes != 30 {
			t.Errorf("Stored duration %d", task.DurationMinutes)
		}
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := setupTestRouter(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"bad duration", map[string]any{"title": "x", "categoryId": env.work.ID, "durationMinutes": 45, "energyLevel": "low", "source": "manual"}, "durationMinutes"},
		{"missing title", map[string]any{"categoryId": env.work.ID, "durationMinutes": 15, "energyLevel": "low", "source": "manual"}, "title"},
		{"bad energy", map[string]any{"title": "x", "categoryId": env.work.ID, "durationMinutes": 15, "energyLevel": "huge", "source": "manual"}, "energyLevel"},
		{"bad category id", map[string]any{"title": "x", "categoryId": "abc", "durationMinutes": 15, "energyLevel": "low", "source": "manual"}, "categoryId"},
		{"malformed", `{"title": `, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/tasks", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
			resp := decode[struct {
				Issues []issue `json:"issues"`
			}](t, w)
			if len(resp.Issues) == 0 || resp.Issues[0].Field != tt.field {
				t.Errorf("Expected issue on %s, got %+v", tt.field, resp.Issues)
			}
		})
	}
}

func TestCreateTaskUnknownCategory(t *testing.T) {
	env := setupTestRouter(t)
	w := env.do(t, "POST", "/tasks", map[string]any{
		"title":           "Orphan",
		"categoryId":      "9b2f3c1e-1d2a-4e5b-8c7d-0a1b2c3d4e5f",
		"durationMinutes": 15,
		"energyLevel":     "low",
		"source":          "manual",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if resp := decode[map[string]string](t, w); resp["error"] != "Category not found" {
		t.Errorf("Unexpected body %v", resp)
	}
}

func TestAddToTodayAppendsAfterMax(t *testing.T) {
	env := setupTestRouter(t)

	env.createTask(t, "one", true)
	env.createTask(t, "two", true)
	third := env.createTask(t, "three", true)

	w := env.do(t, "PATCH", "/tasks/"+third.ID+"/today", map[string]any{"inToday": true, "todayPosition": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	fourth := env.createTask(t, "four", true)
	if fourth.TodayPosition == nil || *fourth.TodayPosition != 6 {
		t.Errorf("Expected position 6, got %v", fourth.TodayPosition)
	}
}

func TestReorderThenToday(t *testing.T) {
	env := setupTestRouter(t)
	a := env.createTask(t, "a", true)
	b := env.createTask(t, "b", true)
	c := env.createTask(t, "c", true)

	w := env.do(t, "POST", "/today/reorder", map[string]any{"taskIds": []string{b.ID, c.ID, a.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, "GET", "/today", nil)
	today := decode[[]model.Task](t, w)
	want := []string{b.ID, c.ID, a.ID}
	if len(today) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(today))
	}
	for i, task := range today {
		if task.ID != want[i] || task.TodayPosition == nil || *task.TodayPosition != i+1 {
			t.Errorf("Slot %d: got %s@%v", i, task.Title, task.TodayPosition)
		}
	}

	entries, _ := env.audit.ListByUser(context.Background(), env.user.ID)
	last := entries[len(entries)-1]
	if last.Action != model.ActionUpdateTask || last.Payload["reordered"] == nil {
		t.Errorf("Unexpected reorder audit %+v", last)
	}
}

func TestReorderRevisionConflict(t *testing.T) {
	env := setupTestRouter(t)
	a := env.createTask(t, "a", true)
	b := env.createTask(t, "b", true)

	w := env.do(t, "GET", "/today", nil)
	rev := w.Header().Get(revisionHeader)
	if rev == "" {
		t.Fatal("Expected revision header on GET /today")
	}

	env.createTask(t, "c", true)

	w = env.do(t, "POST", "/today/reorder", `{"taskIds":["`+b.ID+`","`+a.ID+`"],"revision":`+rev+`}`)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCompleteThenReopen(t *testing.T) {
	env := setupTestRouter(t)
	task := env.createTask(t, "focus", true)

	w := env.do(t, "PATCH", "/tasks/"+task.ID+"/complete", map[string]any{"completed": true})
	done := decode[model.Task](t, w)
	if !done.Completed || done.InToday || done.TodayPosition != nil {
		t.Errorf("Expected completed outside Today, got %+v", done)
	}

	w = env.do(t, "PATCH", "/tasks/"+task.ID+"/complete", map[string]any{"completed": false})
	reopened := decode[model.Task](t, w)
	if reopened.Completed || reopened.InToday || reopened.TodayPosition != nil || reopened.ArchivedAt != nil {
		t.Errorf("Expected active task outside Today, got %+v", reopened)
	}

	w = env.do(t, "PATCH", "/tasks/"+task.ID+"/complete", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing completed, got %d", w.Code)
	}
}

func TestArchiveRemovesEverywhere(t *testing.T) {
	env := setupTestRouter(t)
	task := env.createTask(t, "bye", true)

	w := env.do(t, "PATCH", "/tasks/"+task.ID+"/archive", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if tasks := decode[[]model.Task](t, env.do(t, "GET", "/tasks", nil)); len(tasks) != 0 {
		t.Errorf("Archived task still in /tasks")
	}
	if today := decode[[]model.Task](t, env.do(t, "GET", "/today", nil)); len(today) != 0 {
		t.Errorf("Archived task still in /today")
	}
	for _, c := range decode[[]service.CategorySummary](t, env.do(t, "GET", "/categories", nil)) {
		if c.Counts.Total != 0 {
			t.Errorf("Archived task still counted in %s", c.Name)
		}
	}

	w = env.do(t, "PATCH", "/tasks/9b2f3c1e-1d2a-4e5b-8c7d-0a1b2c3d4e5f/archive", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if resp := decode[map[string]string](t, w); resp["error"] != "Task not found" {
		t.Errorf("Unexpected body %v", resp)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(t, "POST", "/categories", map[string]any{"name": "Side Project", "color": "blue"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[model.Category](t, w)
	if created.IsDefault {
		t.Error("Expected isDefault=false")
	}

	w = env.do(t, "POST", "/categories", map[string]any{"name": "Side Project", "color": "blue"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 for duplicate name, got %d", w.Code)
	}

	task := env.do(t, "POST", "/tasks", map[string]any{
		"title": "side", "categoryId": created.ID, "durationMinutes": 15, "energyLevel": "low", "source": "manual",
	})
	if task.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", task.Code)
	}

	w = env.do(t, "DELETE", "/categories/"+env.work.ID, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 deleting default, got %d", w.Code)
	}

	w = env.do(t, "DELETE", "/categories/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if tasks := decode[[]model.Task](t, env.do(t, "GET", "/tasks", nil)); len(tasks) != 0 {
		t.Errorf("Expected category tasks deleted, got %d", len(tasks))
	}

	categories := decode[[]service.CategorySummary](t, env.do(t, "GET", "/categories", nil))
	if len(categories) != len(service.DefaultCategories) {
		t.Errorf("Expected only default categories, got %d", len(categories))
	}
}

func TestTasksFilterByCategory(t *testing.T) {
	env := setupTestRouter(t)
	env.createTask(t, "work", false)

	w := env.do(t, "GET", "/tasks?category_id="+env.work.ID, nil)
	if tasks := decode[[]model.Task](t, w); len(tasks) != 1 {
		t.Errorf("Expected 1 task, got %d", len(tasks))
	}
	w = env.do(t, "GET", "/tasks?category_id=other", nil)
	if tasks := decode[[]model.Task](t, w); len(tasks) != 0 {
		t.Errorf("Expected no tasks, got %d", len(tasks))
	}
}

func TestBoard(t *testing.T) {
	env := setupTestRouter(t)
	env.createTask(t, "half hour", false)

	w := env.do(t, "GET", "/board?time=15m", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	board := decode[struct {
		Categories []struct {
			Title  string `json:"title"`
			UpNext []any  `json:"upNext"`
		} `json:"categories"`
	}](t, w)
	if board.Categories[0].Title != "Work" || len(board.Categories[0].UpNext) != 0 {
		t.Errorf("Expected 30 min task filtered out: %+v", board.Categories[0])
	}

	if w := env.do(t, "GET", "/board?energy=extreme", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestChatContext(t *testing.T) {
	env := setupTestRouter(t)
	env.createTask(t, "ctx", true)

	w := env.do(t, "GET", "/api/chat/context", nil)
	snap := decode[service.ChatContext](t, w)
	if snap.Stats.TodayTasks != 1 || len(snap.Categories) != len(service.DefaultCategories) {
		t.Errorf("Unexpected snapshot %+v", snap.Stats)
	}

	other := testutil.SeedUser(t, env.db, "other@example.com")
	w = env.do(t, "GET", "/api/chat/context?userId="+other.ID, nil)
	if snap := decode[service.ChatContext](t, w); len(snap.Tasks) != 0 || len(snap.Categories) != 0 {
		t.Errorf("Expected empty snapshot for other user, got %+v", snap)
	}
}

func TestChatContextUserIDBeforeSeed(t *testing.T) {
	env := setupTestRouter(t, func(d *Deps) {
		d.Owners = NewIdentity(nil, d.Owners.(*Identity).users, "missing@example.com")
	})
	testutil.SeedTask(t, env.db, model.Task{UserID: env.user.ID, CategoryID: env.work.ID})

	w := env.do(t, "GET", "/api/chat/context?userId="+env.user.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if snap := decode[service.ChatContext](t, w); len(snap.Tasks) != 1 {
		t.Errorf("Expected the named user's task, got %+v", snap.Tasks)
	}

	w = env.do(t, "GET", "/api/chat/context", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 without a default user, got %d", w.Code)
	}
}

func TestChat(t *testing.T) {
	chatter := &MockChatter{ChatFunc: func(ctx context.Context, owner, message string) (assistant.ChatResult, error) {
		if message == "fail" {
			return assistant.ChatResult{}, &assistant.UpstreamError{Status: 500, Message: "model down"}
		}
		return assistant.ChatResult{Reply: "echo " + message}, nil
	}}
	env := setupTestRouter(t, func(d *Deps) { d.Chat = chatter })

	w := env.do(t, "POST", "/api/chat", map[string]string{"message": "hi"})
	if resp := decode[assistant.ChatResult](t, w); w.Code != http.StatusOK || resp.Reply != "echo hi" {
		t.Errorf("Unexpected response %d %+v", w.Code, resp)
	}

	w = env.do(t, "POST", "/api/chat", map[string]string{"message": "fail"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
	if resp := decode[map[string]string](t, w); resp["reply"] != assistant.FallbackReply {
		t.Errorf("Expected fallback reply, got %v", resp)
	}
}

func TestChatNotConfigured(t *testing.T) {
	env := setupTestRouter(t)
	w := env.do(t, "POST", "/api/chat", map[string]string{"message": "hi"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	signer := auth.NewSigner("secret")
	env := setupTestRouter(t, func(d *Deps) {
		d.Owners = NewIdentity(signer, d.Owners.(*Identity).users, defaultEmail)
	})

	if w := env.do(t, "GET", "/tasks", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}

	token, err := signer.Sign(env.user.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest("GET", "/categories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with token, got %d", w.Code)
	}

	req, _ = http.NewRequest("GET", "/api/chat/context?userId=someone-else", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign userId, got %d", w.Code)
	}
}
