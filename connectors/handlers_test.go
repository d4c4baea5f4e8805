package connectors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomaszgubala/car-dealer/config"
)

func newCronRouter(scheduler *Scheduler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/api/import/cron", CronHandler(scheduler))
	return router
}

func newTestScheduler(im *Importer) *Scheduler {
	return &Scheduler{
		Importer: im,
		Interval: time.Minute,
		Logger:   config.GetLogger(),
	}
}

func TestCronHandler_MissingSecretAnswersUnavailable(t *testing.T) {
	t.Setenv("IMPORT_SECRET_TOKEN", "")

	conn := &stubConnector{name: "feedA"}
	router := newCronRouter(newTestScheduler(newTestImporter(newMemStore(), &countingCache{}, conn)))

	req := httptest.NewRequest(http.MethodGet, "/api/import/cron", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the trigger secret is unset, got %d", rec.Code)
	}
	if conn.fetches != 0 {
		t.Errorf("no import may run without a configured secret, got %d fetches", conn.fetches)
	}
}

func TestCronHandler_RejectsWrongToken(t *testing.T) {
	t.Setenv("IMPORT_SECRET_TOKEN", "s3cret")

	conn := &stubConnector{name: "feedA"}
	router := newCronRouter(newTestScheduler(newTestImporter(newMemStore(), &countingCache{}, conn)))

	req := httptest.NewRequest(http.MethodGet, "/api/import/cron", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rec.Code)
	}
	if conn.fetches != 0 {
		t.Errorf("no import may run with a bad token, got %d fetches", conn.fetches)
	}
}

func TestCronHandler_ValidTokenRunsImport(t *testing.T) {
	t.Setenv("IMPORT_SECRET_TOKEN", "s3cret")

	store := newMemStore()
	conn := &stubConnector{
		name:   "feedA",
		result: ConnectorResult{Vehicles: []IncomingVehicle{incoming("EXT-010", "BMW", "X3", 2021, "159900.00")}},
	}
	router := newCronRouter(newTestScheduler(newTestImporter(store, &countingCache{}, conn)))

	req := httptest.NewRequest(http.MethodGet, "/api/import/cron", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if conn.fetches != 1 {
		t.Errorf("expected one fetch, got %d", conn.fetches)
	}
	if len(store.vehicles) != 1 {
		t.Errorf("expected the record stored, got %d vehicles", len(store.vehicles))
	}
}
