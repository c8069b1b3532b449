package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"media-index/internal/database"
	"media-index/internal/indexer"
	"media-index/internal/memory"
	"media-index/internal/repository"
	"media-index/internal/repository/local"
	"media-index/internal/startup"
)

type testApp struct {
	db        *database.Database
	registry  *repository.Registry
	scheduler *indexer.Scheduler
}

func newTestApp(t *testing.T, ids ...string) *testApp {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	registry := repository.NewRegistry()
	for _, id := range ids {
		repo, err := local.New(id, t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if err := registry.Register(repo); err != nil {
			t.Fatal(err)
		}
	}

	scheduler := indexer.NewScheduler(indexer.NewBuilder(db, 1), registry)
	t.Cleanup(scheduler.Stop)
	return &testApp{db: db, registry: registry, scheduler: scheduler}
}

func TestQueueRepositories(t *testing.T) {
	app := newTestApp(t, "photos", "videos")
	config := &startup.Config{
		UpdateInterval: time.Hour,
		Repositories: []startup.RepositoryConfig{
			{ID: "photos"},
			{ID: "videos", IndexUpdateAt: "03:30"},
			{ID: "disabled"},
		},
	}

	schedules, err := queueRepositories(app.scheduler, app.registry, config)
	if err != nil {
		t.Fatalf("queueRepositories failed: %v", err)
	}

	want := map[string]string{"photos": "every 1h0m0s", "videos": "daily at 03:30"}
	if len(schedules) != len(want) {
		t.Fatalf("schedules = %v, want %v", schedules, want)
	}
	for id, s := range want {
		if schedules[id] != s {
			t.Errorf("schedule of %s = %q, want %q", id, schedules[id], s)
		}
	}

	queued := app.scheduler.Queued()
	if len(queued) != 2 || queued[0] != "photos" || queued[1] != "videos" {
		t.Errorf("Queued() = %v, want [photos videos]", queued)
	}
}

func TestQueueRepositories_InvalidSchedule(t *testing.T) {
	app := newTestApp(t, "photos")
	config := &startup.Config{
		Repositories: []startup.RepositoryConfig{{ID: "photos", IndexUpdateInterval: "soon"}},
	}

	if _, err := queueRepositories(app.scheduler, app.registry, config); !repository.IsValidation(err) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("9090")
	if srv.Addr != ":9090" {
		t.Errorf("Expected address :9090, got %s", srv.Addr)
	}
	if srv.ReadTimeout != 5*time.Second || srv.WriteTimeout != 10*time.Second {
		t.Errorf("unexpected timeouts read=%v write=%v", srv.ReadTimeout, srv.WriteTimeout)
	}

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 from /metrics, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected the admin API to be absent from the metrics server, got %d", w.Code)
	}
}

func TestShutdown(t *testing.T) {
	app := newTestApp(t, "photos")
	if err := app.scheduler.Start(); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewUnstartedServer(http.NotFoundHandler())
	srv.Start()
	svc := &services{
		scheduler: app.scheduler,
		monitor:   memory.NewMonitor(memory.DefaultConfig()),
		servers:   []*http.Server{srv.Config},
		registry:  app.registry,
		db:        app.db,
	}
	svc.monitor.Start()

	shutdown(svc)

	if app.scheduler.IsIndexing() {
		t.Error("scheduler should be stopped")
	}
	if _, err := app.db.Count(context.Background()); err == nil {
		t.Error("Expected the index database to be closed")
	}
	if _, err := http.Get(srv.URL); err == nil {
		t.Error("Expected the HTTP server to be shut down")
	}
}
