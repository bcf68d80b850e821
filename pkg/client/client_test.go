package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"today-planner/internal/api"
	"today-planner/internal/logging"
	"today-planner/internal/model"
	"today-planner/internal/repository"
	"today-planner/internal/service"
	"today-planner/internal/testutil"
	"today-planner/internal/view"
	"today-planner/pkg/client"
)

const defaultEmail = "demo@notton.ai"

func setupServer(t *testing.T) (*client.Client, string) {
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

	router := api.NewRouter(api.Deps{
		Tasks:      service.NewTaskService(db, tasks, categories, users, audit, l),
		Categories: service.NewCategoryService(categories, audit, l),
		Contexts:   service.NewContextService(tasks, categories, 0),
		Owners:     api.NewIdentity(nil, users, defaultEmail),
		Log:        l,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return client.New(srv.URL), user.ID
}

func workCategory(t *testing.T, c *client.Client) service.CategorySummary {
	t.Helper()
	categories, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	for _, cat := range categories {
		if cat.Name == "Work" {
			return cat
		}
	}
	t.Fatalf("Work category missing from %v", categories)
	return service.CategorySummary{}
}

func newTask(title, categoryID string, addToToday bool) client.CreateTaskRequest {
	return client.CreateTaskRequest{
		Title:           title,
		CategoryID:      categoryID,
		DurationMinutes: model.Duration30,
		EnergyLevel:     model.EnergyMed,
		Source:          model.SourceManual,
		AddToToday:      addToToday,
	}
}

func TestClientTaskLifecycle(t *testing.T) {
	c, _ := setupServer(t)
	ctx := context.Background()
	work := workCategory(t, c)

	task, err := c.CreateTask(ctx, newTask("Write report", work.ID, true))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if !task.InToday || task.TodayPosition == nil || *task.TodayPosition != 1 {
		t.Errorf("Expected task in today at 1, got %+v", task)
	}

	today, rev, err := c.Today(ctx)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if len(today) != 1 || rev == 0 {
		t.Errorf("Expected one today task with a revision, got %d tasks rev %d", len(today), rev)
	}

	done, err := c.SetCompleted(ctx, task.ID, true)
	if err != nil {
		t.Fatalf("SetCompleted: %v", err)
	}
	if !done.Completed || done.InToday {
		t.Errorf("Expected completed task out of today, got %+v", done)
	}

	if err := c.Archive(ctx, task.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := c.SetCompleted(ctx, task.ID, false); client.StatusOf(err) != http.StatusNotFound {
		t.Errorf("Expected 404 for archived task, got %v", err)
	}
}

func TestClientValidationError(t *testing.T) {
	c, _ := setupServer(t)
	work := workCategory(t, c)

	req := newTask("", work.ID, false)
	req.DurationMinutes = 45
	_, err := c.CreateTask(context.Background(), req)

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", apiErr.Status)
	}
	if len(apiErr.Issues) == 0 {
		t.Errorf("Expected field issues, got none")
	}
}

func TestClientChatContextUserID(t *testing.T) {
	c, userID := setupServer(t)
	ctx := context.Background()
	work := workCategory(t, c)
	if _, err := c.CreateTask(ctx, newTask("Read paper", work.ID, false)); err != nil {
		t.Fatal(err)
	}

	snapshot, err := c.ChatContext(ctx, userID)
	if err != nil {
		t.Fatalf("ChatContext: %v", err)
	}
	if snapshot.Stats.TotalTasks != 1 || len(snapshot.Tasks) != 1 {
		t.Errorf("Expected one task in snapshot, got %+v", snapshot.Stats)
	}
}

func TestClientChatNotConfigured(t *testing.T) {
	c, _ := setupServer(t)
	_, err := c.Chat(context.Background(), "hello")
	if client.StatusOf(err) != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %v", err)
	}
}

func TestSessionRefetchesAfterMutation(t *testing.T) {
	c, _ := setupServer(t)
	ctx := context.Background()
	s := client.NewSession(c)
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	work := workCategory(t, c)

	a, err := s.CreateTask(ctx, newTask("A", work.ID, true))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.CreateTask(ctx, newTask("B", work.ID, true))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tasks()) != 2 || len(s.Today()) != 2 {
		t.Fatalf("Expected 2 tasks and 2 today, got %d and %d", len(s.Tasks()), len(s.Today()))
	}

	if err := s.ReorderToday(ctx, []string{b.ID, a.ID}); err != nil {
		t.Fatalf("ReorderToday: %v", err)
	}
	today := s.Today()
	if today[0].ID != b.ID || today[1].ID != a.ID {
		t.Errorf("Expected [B A], got [%s %s]", today[0].Title, today[1].Title)
	}

	if _, err := s.SetCompleted(ctx, a.ID, true); err != nil {
		t.Fatal(err)
	}
	board := s.Board(view.Filter{})
	var workView view.CategoryView
	for _, cv := range board.Categories {
		if cv.ID == work.ID {
			workView = cv
		}
	}
	if len(workView.Completed) != 1 || workView.Counts.Completed != 1 {
		t.Errorf("Expected one completed task on the board, got %+v", workView)
	}
	if len(board.Today) != 1 {
		t.Errorf("Expected one task left in today, got %d", len(board.Today))
	}
}

func TestSessionReorderConflictRefreshes(t *testing.T) {
	c, _ := setupServer(t)
	ctx := context.Background()
	work := workCategory(t, c)

	a, _ := c.CreateTask(ctx, newTask("A", work.ID, true))
	b, _ := c.CreateTask(ctx, newTask("B", work.ID, true))

	s := client.NewSession(c)
	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	stale := s.Revision()

	// Another client changes Today behind the session's back.
	if _, err := c.SetToday(ctx, a.ID, false, nil); err != nil {
		t.Fatal(err)
	}

	err := s.ReorderToday(ctx, []string{b.ID, a.ID})
	if client.StatusOf(err) != http.StatusConflict {
		t.Fatalf("Expected status 409, got %v", err)
	}
	if s.Revision() == stale {
		t.Errorf("Expected revision to move past %d after refresh", stale)
	}
	if len(s.Today()) != 1 {
		t.Errorf("Expected refreshed today with 1 task, got %d", len(s.Today()))
	}
}

func TestSessionCountsRequests(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.Method+" "+r.URL.Path]++
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/today":
			w.Header().Set("X-Today-Revision", "7")
			w.Write([]byte("[]"))
		case "/categories", "/tasks":
			w.Write([]byte("[]"))
		case "/tasks/t1/archive":
			json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Route not found"}`))
		}
	}))
	defer srv.Close()

	s := client.NewSession(client.New(srv.URL))
	if err := s.Archive(context.Background(), "t1"); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	for _, key := range []string{"PATCH /tasks/t1/archive", "GET /categories", "GET /tasks", "GET /today"} {
		if hits[key] != 1 {
			t.Errorf("Expected 1 request to %s, got %d", key, hits[key])
		}
	}
	if s.Revision() != 7 {
		t.Errorf("Expected revision 7, got %d", s.Revision())
	}

	// A failed mutation still refreshes, and its error wins.
	err := s.DeleteCategory(context.Background(), "missing")
	if client.StatusOf(err) != http.StatusNotFound {
		t.Errorf("Expected status 404, got %v", err)
	}
	if hits["GET /today"] != 2 {
		t.Errorf("Expected a second refresh, got %d", hits["GET /today"])
	}
}
