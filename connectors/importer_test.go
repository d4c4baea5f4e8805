package connectors

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/models"
	"gorm.io/gorm"
)

// NOTE: These tests are intentionally DB-free. They validate the import
// pipeline semantics against an in-memory store:
// - every run leaves a finalized job row with correct counters
// - per-record failures never abort the rest of the run
// - reconciliation preserves admin-owned lifecycle fields
// Full DB integration tests require a MySQL instance.

type fakeJob struct {
	connector    string
	status       models.ImportJobStatus
	newCount     int
	updatedCount int
	errs         []string
	finalized    bool
}

type memStore struct {
	mu       sync.Mutex
	jobs     map[int]*fakeJob
	vehicles []*models.Vehicle

	failCreateJob bool
	insertErrFor  map[string]error
	updateErrFor  map[int]error
	// slugDupCount makes the next N inserts fail with a duplicate key
	// error, simulating slug collisions.
	slugDupCount int
}

func newMemStore() *memStore {
	return &memStore{jobs: map[int]*fakeJob{}}
}

func (s *memStore) CreateJob(ctx context.Context, connector string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateJob {
		return 0, errors.New("db down")
	}
	id := len(s.jobs) + 1
	s.jobs[id] = &fakeJob{connector: connector, status: models.ImportJobStatusRunning}
	return id, nil
}

func (s *memStore) FinalizeJob(ctx context.Context, jobId int, status models.ImportJobStatus, newCount, updatedCount int, errs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobId]
	if job == nil {
		return errors.New("job not found")
	}
	job.status = status
	job.newCount = newCount
	job.updatedCount = updatedCount
	job.errs = errs
	job.finalized = true
	return nil
}

func (s *memStore) FindByExternalId(ctx context.Context, source, externalId string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		if v.Source == source && v.SourceExternalId != nil && *v.SourceExternalId == externalId {
			out := *v
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.SourceExternalId != nil {
		if err, ok := s.insertErrFor[*v.SourceExternalId]; ok {
			return err
		}
	}
	if s.slugDupCount > 0 {
		s.slugDupCount--
		return gorm.ErrDuplicatedKey
	}
	stored := *v
	stored.ID = len(s.vehicles) + 1
	s.vehicles = append(s.vehicles, &stored)
	v.ID = stored.ID
	return nil
}

func (s *memStore) UpdateVehicle(ctx context.Context, id int, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.updateErrFor[id]; ok {
		return err
	}
	for _, v := range s.vehicles {
		if v.ID == id {
			if price, ok := updates["price_gross"].(decimal.Decimal); ok {
				v.PriceGross = price
			}
			if mk, ok := updates["make"].(string); ok {
				v.Make = mk
			}
			return nil
		}
	}
	return errors.New("vehicle not found")
}

type stubConnector struct {
	name    string
	result  ConnectorResult
	fetches int
	panics  bool
}

func (c *stubConnector) Name() string { return c.name }

func (c *stubConnector) Fetch(ctx context.Context) ConnectorResult {
	c.fetches++
	if c.panics {
		panic("connector exploded")
	}
	return c.result
}

type countingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCache) InvalidateListing() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func incoming(externalId, mk, mdl string, year int, price string) IncomingVehicle {
	return IncomingVehicle{
		ExternalId: externalId,
		Type:       models.VehicleTypeUsed,
		Make:       mk,
		Model:      mdl,
		Year:       year,
		PriceGross: decimal.RequireFromString(price),
	}
}

func newTestImporter(store *memStore, cache *countingCache, conns ...Connector) *Importer {
	return &Importer{
		Store:        store,
		Cache:        cache,
		Logger:       config.GetLogger(),
		FetchTimeout: time.Second,
		Registry:     conns,
	}
}

func TestRun_NewVehicleGoesLive(t *testing.T) {
	store := newMemStore()
	cache := &countingCache{}
	conn := &stubConnector{
		name:   "feedA",
		result: ConnectorResult{Vehicles: []IncomingVehicle{incoming("EXT-010", "BMW", "X3", 2021, "159900.00")}},
	}
	im := newTestImporter(store, cache, conn)

	results := im.Run(context.Background(), "")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Status != string(models.ImportJobStatusSuccess) {
		t.Fatalf("expected SUCCESS, got %s", r.Status)
	}
	if r.NewCount != 1 || r.UpdatedCount != 0 || r.ErrorCount != 0 {
		t.Fatalf("unexpected counters: %+v", r)
	}

	if len(store.vehicles) != 1 {
		t.Fatalf("expected 1 stored vehicle, got %d", len(store.vehicles))
	}
	v := store.vehicles[0]
	if v.Source != "feedA" || v.SourceExternalId == nil || *v.SourceExternalId != "EXT-010" {
		t.Errorf("reconciliation key not set: source=%q externalId=%v", v.Source, v.SourceExternalId)
	}
	if v.Status != models.VehicleStatusActive {
		t.Errorf("imported vehicle should be ACTIVE, got %s", v.Status)
	}
	if v.PublishedAt == nil {
		t.Error("imported vehicle should have published_at set")
	}
	if !strings.HasPrefix(v.Slug, "uzywane-bmw-x3-2021-") {
		t.Errorf("unexpected slug %q", v.Slug)
	}
	if v.Currency != models.CurrencyPLN {
		t.Errorf("currency should default to PLN, got %s", v.Currency)
	}
	if cache.calls != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", cache.calls)
	}

	job := store.jobs[r.JobId]
	if job == nil || !job.finalized {
		t.Fatal("job row not finalized")
	}
	if job.status != models.ImportJobStatusSuccess || job.newCount != 1 {
		t.Errorf("unexpected job record: %+v", job)
	}
}

func TestRun_SecondRunUpdatesInPlace(t *testing.T) {
	store := newMemStore()
	conn := &stubConnector{
		name:   "feedA",
		result: ConnectorResult{Vehicles: []IncomingVehicle{incoming("EXT-010", "BMW", "X3", 2021, "159900.00")}},
	}
	im := newTestImporter(store, &countingCache{}, conn)

	im.Run(context.Background(), "")

	// Admin pulls the listing between runs; the next import must not
	// resurrect it or touch its slug.
	store.vehicles[0].Status = models.VehicleStatusInactive
	originalSlug := store.vehicles[0].Slug

	conn.result.Vehicles[0].PriceGross = decimal.RequireFromString("149900.00")
	results := im.Run(context.Background(), "")

	r := results[0]
	if r.NewCount != 0 || r.UpdatedCount != 1 {
		t.Fatalf("expected update, got %+v", r)
	}
	if len(store.vehicles) != 1 {
		t.Fatalf("expected no duplicate row, got %d vehicles", len(store.vehicles))
	}
	v := store.vehicles[0]
	if !v.PriceGross.Equal(decimal.RequireFromString("149900.00")) {
		t.Errorf("price not refreshed: %s", v.PriceGross)
	}
	if v.Status != models.VehicleStatusInactive {
		t.Errorf("import must not change status, got %s", v.Status)
	}
	if v.Slug != originalSlug {
		t.Errorf("import must not change slug: %q != %q", v.Slug, originalSlug)
	}
}

func TestRun_DuplicateExternalIdWithinBatchCollapses(t *testing.T) {
	store := newMemStore()
	first := incoming("EXT-010", "BMW", "X3", 2021, "159900.00")
	second := incoming("EXT-010", "BMW", "X3", 2021, "154900.00")
	conn := &stubConnector{
		name:   "feedA",
		result: ConnectorResult{Vehicles: []IncomingVehicle{first, second}},
	}
	im := newTestImporter(store, &countingCache{}, conn)

	r := im.Run(context.Background(), "")[0]
	if r.NewCount != 1 || r.UpdatedCount != 1 || r.ErrorCount != 0 {
		t.Fatalf("unexpected counters: %+v", r)
	}
	if len(store.vehicles) != 1 {
		t.Fatalf("duplicate externalId in one feed must not create a second row, got %d", len(store.vehicles))
	}
	if !store.vehicles[0].PriceGross.Equal(decimal.RequireFromString("154900.00")) {
		t.Errorf("the later record should win: %s", store.vehicles[0].PriceGross)
	}
}

func TestRun_PerRecordFailureDoesNotAbortRun(t *testing.T) {
	store := newMemStore()
	store.insertErrFor = map[string]error{"EXT-002": errors.New("column too long")}
	conn := &stubConnector{
		name: "feedA",
		result: ConnectorResult{Vehicles: []IncomingVehicle{
			incoming("EXT-001", "Audi", "A4", 2020, "99900.00"),
			incoming("EXT-002", "Audi", "A6", 2022, "189900.00"),
			incoming("EXT-003", "Audi", "Q5", 2023, "229900.00"),
		}},
	}
	im := newTestImporter(store, &countingCache{}, conn)

	r := im.Run(context.Background(), "")[0]
	if r.Status != string(models.ImportJobStatusSuccess) {
		t.Fatalf("per-record failures must not fail the run, got %s", r.Status)
	}
	if r.NewCount != 2 || r.ErrorCount != 1 {
		t.Fatalf("unexpected counters: %+v", r)
	}
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "[EXT-002]") {
		t.Errorf("error should name the failing record: %v", r.Errors)
	}
	if len(store.vehicles) != 2 {
		t.Errorf("expected the other 2 records stored, got %d", len(store.vehicles))
	}
}

func TestRun_FetchFailureIsRecordedNotFatal(t *testing.T) {
	store := newMemStore()
	conn := &stubConnector{
		name:   "feedA",
		result: ConnectorResult{Errors: []string{"fetch failed: connection refused"}},
	}
	im := newTestImporter(store, &countingCache{}, conn)

	r := im.Run(context.Background(), "")[0]
	if r.Status != string(models.ImportJobStatusSuccess) {
		t.Fatalf("expected SUCCESS with errors, got %s", r.Status)
	}
	if r.ErrorCount != 1 || r.NewCount != 0 {
		t.Fatalf("unexpected counters: %+v", r)
	}
	job := store.jobs[r.JobId]
	if !job.finalized || len(job.errs) != 1 {
		t.Errorf("fetch error not recorded on job: %+v", job)
	}
}

func TestRun_PanicMarksJobFailed(t *testing.T) {
	store := newMemStore()
	cache := &countingCache{}
	conn := &stubConnector{name: "feedA", panics: true}
	im := newTestImporter(store, cache, conn)

	r := im.Run(context.Background(), "")[0]
	if r.Status != string(models.ImportJobStatusFailed) {
		t.Fatalf("expected FAILED, got %s", r.Status)
	}
	if len(r.Errors) != 1 || !strings.HasPrefix(r.Errors[0], "Fatal: ") {
		t.Errorf("panic should surface as a Fatal error: %v", r.Errors)
	}
	job := store.jobs[r.JobId]
	if job == nil || !job.finalized || job.status != models.ImportJobStatusFailed {
		t.Errorf("job must still reach a terminal state: %+v", job)
	}
	if cache.calls != 0 {
		t.Error("failed run must not invalidate the cache")
	}
}

func TestRun_OneConnectorFailingLeavesOthersAlone(t *testing.T) {
	store := newMemStore()
	broken := &stubConnector{name: "feedA", panics: true}
	healthy := &stubConnector{
		name:   "feedB",
		result: ConnectorResult{Vehicles: []IncomingVehicle{incoming("B-1", "Skoda", "Octavia", 2019, "64900.00")}},
	}
	im := newTestImporter(store, &countingCache{}, broken, healthy)

	results := im.Run(context.Background(), "")
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != string(models.ImportJobStatusFailed) {
		t.Errorf("feedA should fail, got %s", results[0].Status)
	}
	if results[1].Status != string(models.ImportJobStatusSuccess) || results[1].NewCount != 1 {
		t.Errorf("feedB should succeed: %+v", results[1])
	}
}

func TestRun_SelectiveRunTouchesOnlyNamedConnector(t *testing.T) {
	store := newMemStore()
	a := &stubConnector{name: "feedA"}
	b := &stubConnector{
		name:   "feedB",
		result: ConnectorResult{Vehicles: []IncomingVehicle{incoming("B-1", "Skoda", "Octavia", 2019, "64900.00")}},
	}
	im := newTestImporter(store, &countingCache{}, a, b)

	results := im.Run(context.Background(), "feedB")
	if len(results) != 1 || results[0].Connector != "feedB" {
		t.Fatalf("expected only feedB to run: %+v", results)
	}
	if a.fetches != 0 {
		t.Errorf("feedA must not be fetched, got %d fetches", a.fetches)
	}
	if b.fetches != 1 {
		t.Errorf("feedB should be fetched once, got %d", b.fetches)
	}
}

func TestRun_UnknownConnectorSelectsNothing(t *testing.T) {
	store := newMemStore()
	conn := &stubConnector{name: "feedA"}
	im := newTestImporter(store, &countingCache{}, conn)

	results := im.Run(context.Background(), "nope")
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
	if conn.fetches != 0 {
		t.Errorf("nothing should be fetched, got %d fetches", conn.fetches)
	}
	if len(store.jobs) != 0 {
		t.Errorf("no job rows expected, got %d", len(store.jobs))
	}
}

func TestRun_SlugCollisionRetriesOnce(t *testing.T) {
	store := newMemStore()
	store.slugDupCount = 1
	conn := &stubConnector{
		name:   "feedA",
		result: ConnectorResult{Vehicles: []IncomingVehicle{incoming("EXT-010", "BMW", "X3", 2021, "159900.00")}},
	}
	im := newTestImporter(store, &countingCache{}, conn)

	r := im.Run(context.Background(), "")[0]
	if r.NewCount != 1 || r.ErrorCount != 0 {
		t.Fatalf("one collision should be absorbed by the retry: %+v", r)
	}

	// Two collisions in a row exhaust the retry and surface as a
	// per-record error.
	store2 := newMemStore()
	store2.slugDupCount = 2
	im2 := newTestImporter(store2, &countingCache{}, conn)

	r2 := im2.Run(context.Background(), "")[0]
	if r2.NewCount != 0 || r2.ErrorCount != 1 {
		t.Fatalf("second collision should be reported: %+v", r2)
	}
	if r2.Status != string(models.ImportJobStatusSuccess) {
		t.Errorf("a per-record collision must not fail the run, got %s", r2.Status)
	}
}

func TestRun_CreateJobFailureIsFatal(t *testing.T) {
	store := newMemStore()
	store.failCreateJob = true
	conn := &stubConnector{name: "feedA"}
	im := newTestImporter(store, &countingCache{}, conn)

	r := im.Run(context.Background(), "")[0]
	if r.Status != string(models.ImportJobStatusFailed) {
		t.Fatalf("expected FAILED, got %s", r.Status)
	}
	if conn.fetches != 0 {
		t.Error("fetch must not happen when the job row cannot be created")
	}
}
