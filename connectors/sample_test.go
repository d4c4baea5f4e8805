package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomaszgubala/car-dealer/models"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc) *SampleExternalAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &SampleExternalAPI{
		baseURL: srv.URL,
		apiKey:  "test-key",
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func TestSampleFetch_MapsFeedRecords(t *testing.T) {
	var gotAuth string
	conn := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/vehicles" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "F-1",
			"condition": "used",
			"make": "BMW",
			"model": "X3",
			"year": 2021,
			"mileage": 42500,
			"fuel_code": "D",
			"gearbox_code": "A",
			"body_code": "SUV",
			"power_hp": 190,
			"price_gross": "159900.00",
			"currency": "pln",
			"images": ["https://cdn.example.com/1.jpg"]
		}]`))
	})

	result := conn.Fetch(context.Background())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(result.Vehicles))
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("missing bearer auth, got %q", gotAuth)
	}

	v := result.Vehicles[0]
	if v.ExternalId != "F-1" || v.Type != models.VehicleTypeUsed {
		t.Errorf("unexpected identity mapping: %+v", v)
	}
	if v.Fuel == nil || *v.Fuel != "Diesel" {
		t.Errorf("fuel code D should map to Diesel, got %v", v.Fuel)
	}
	if v.Gearbox == nil || *v.Gearbox != "Automatyczna" {
		t.Errorf("gearbox code A should map to Automatyczna, got %v", v.Gearbox)
	}
	if v.BodyType == nil || *v.BodyType != "SUV" {
		t.Errorf("body code SUV should map to SUV, got %v", v.BodyType)
	}
	if v.Currency == nil || *v.Currency != models.CurrencyPLN {
		t.Errorf("currency should be uppercased to PLN, got %v", v.Currency)
	}
	if !v.PriceGross.Equal(decimal.RequireFromString("159900.00")) {
		t.Errorf("unexpected price %s", v.PriceGross)
	}
}

func TestSampleFetch_BadRecordsAreReportedPerId(t *testing.T) {
	conn := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "F-1", "condition": "demo", "make": "BMW", "model": "X3", "year": 2021, "price_gross": "1"},
			{"id": "F-2", "condition": "used", "make": "BMW", "model": "X3", "year": 2021, "price_gross": "oops"},
			{"id": "F-3", "condition": "used", "make": "", "model": "X3", "year": 2021, "price_gross": "1"},
			{"id": "F-4", "condition": "used", "make": "BMW", "model": "X3", "year": 2021, "price_gross": "99900.00"}
		]`))
	})

	result := conn.Fetch(context.Background())
	if len(result.Vehicles) != 1 || result.Vehicles[0].ExternalId != "F-4" {
		t.Fatalf("only F-4 should survive, got %+v", result.Vehicles)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %v", result.Errors)
	}
	for i, wantId := range []string{"[F-1]", "[F-2]", "[F-3]"} {
		if !strings.HasPrefix(result.Errors[i], wantId) {
			t.Errorf("error %d should be tagged %s: %q", i, wantId, result.Errors[i])
		}
	}
}

func TestSampleFetch_UpstreamFailureIsSingleError(t *testing.T) {
	conn := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream on fire", http.StatusBadGateway)
	})

	result := conn.Fetch(context.Background())
	if len(result.Vehicles) != 0 {
		t.Fatalf("no vehicles expected, got %d", len(result.Vehicles))
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "status 502") {
		t.Fatalf("expected one fetch error mentioning the status, got %v", result.Errors)
	}
}

func TestSampleFetch_BuiltInFeedIsValid(t *testing.T) {
	conn := &SampleExternalAPI{client: &http.Client{Timeout: time.Second}}

	result := conn.Fetch(context.Background())
	if len(result.Errors) != 0 {
		t.Fatalf("built-in feed must validate cleanly: %v", result.Errors)
	}
	if len(result.Vehicles) == 0 {
		t.Fatal("built-in feed should yield vehicles")
	}
}
