package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomaszgubala/car-dealer/models"
)

// SampleExternalAPI pulls inventory from a generic dealer-feed REST API.
// When no endpoint is configured it serves a small built-in payload so
// the import pipeline can be exercised end to end in development.
type SampleExternalAPI struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSampleExternalAPI() *SampleExternalAPI {
	return &SampleExternalAPI{
		baseURL: strings.TrimRight(os.Getenv("SAMPLE_FEED_URL"), "/"),
		apiKey:  os.Getenv("SAMPLE_FEED_API_KEY"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SampleExternalAPI) Name() string {
	return "SampleExternalAPI"
}

// feedVehicle mirrors the upstream wire format. Numeric ids and coded
// enums get translated into the normalized record before validation.
type feedVehicle struct {
	Id          string   `json:"id"`
	Condition   string   `json:"condition"`
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	Trim        string   `json:"trim"`
	Year        int      `json:"year"`
	Mileage     *int     `json:"mileage"`
	FuelCode    string   `json:"fuel_code"`
	GearboxCode string   `json:"gearbox_code"`
	BodyCode    string   `json:"body_code"`
	Drive       string   `json:"drive"`
	PowerHP     *int     `json:"power_hp"`
	EngineCC    *int     `json:"engine_cc"`
	Color       string   `json:"color"`
	PriceGross  string   `json:"price_gross"`
	Currency    string   `json:"currency"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Videos      []string `json:"videos"`
	Features    []string `json:"features"`
}

var fuelNames = map[string]string{
	"P":  "Benzyna",
	"D":  "Diesel",
	"E":  "Elektryczny",
	"H":  "Hybryda",
	"PH": "Hybryda plug-in",
	"LP": "Benzyna+LPG",
}

var gearboxNames = map[string]string{
	"M": "Manualna",
	"A": "Automatyczna",
}

var bodyNames = map[string]string{
	"SUV": "SUV",
	"SED": "Sedan",
	"KOM": "Kombi",
	"HAT": "Hatchback",
	"COU": "Coupe",
	"CAB": "Kabriolet",
	"VAN": "Minivan",
}

func (s *SampleExternalAPI) Fetch(ctx context.Context) ConnectorResult {
	var result ConnectorResult

	feed, err := s.loadFeed(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch failed: %s", err.Error()))
		return result
	}

	for i := range feed {
		raw := &feed[i]
		in, err := s.mapVehicle(raw)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("[%s] %s", raw.Id, err.Error()))
			continue
		}
		if err := ValidateIncomingVehicle(in); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("[%s] %s", raw.Id, err.Error()))
			continue
		}
		result.Vehicles = append(result.Vehicles, *in)
	}
	return result
}

func (s *SampleExternalAPI) loadFeed(ctx context.Context) ([]feedVehicle, error) {
	if s.baseURL == "" {
		return sampleFeedData(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/vehicles", nil)
	if err != nil {
		return nil, err
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var feed []feedVehicle
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}
	return feed, nil
}

func (s *SampleExternalAPI) mapVehicle(raw *feedVehicle) (*IncomingVehicle, error) {
	price, err := decimal.NewFromString(raw.PriceGross)
	if err != nil {
		return nil, fmt.Errorf("unparsable price %q", raw.PriceGross)
	}

	var vehicleType models.VehicleType
	switch strings.ToLower(raw.Condition) {
	case "new":
		vehicleType = models.VehicleTypeNew
	case "used":
		vehicleType = models.VehicleTypeUsed
	default:
		return nil, fmt.Errorf("unknown condition %q", raw.Condition)
	}

	in := &IncomingVehicle{
		ExternalId: raw.Id,
		Type:       vehicleType,
		Make:       strings.TrimSpace(raw.Make),
		Model:      strings.TrimSpace(raw.Model),
		Year:       raw.Year,
		Mileage:    raw.Mileage,
		PowerHP:    raw.PowerHP,
		EngineCC:   raw.EngineCC,
		PriceGross: price,
		Images:     raw.Images,
		Videos:     raw.Videos,
		Features:   raw.Features,
	}

	if raw.Trim != "" {
		in.Trim = &raw.Trim
	}
	if name, ok := fuelNames[raw.FuelCode]; ok {
		in.Fuel = &name
	}
	if name, ok := gearboxNames[raw.GearboxCode]; ok {
		in.Gearbox = &name
	}
	if name, ok := bodyNames[raw.BodyCode]; ok {
		in.BodyType = &name
	}
	if raw.Drive != "" {
		in.Drive = &raw.Drive
	}
	if raw.Color != "" {
		in.Color = &raw.Color
	}
	if raw.Location != "" {
		in.Location = &raw.Location
	}
	if raw.Description != "" {
		in.DescriptionPL = &raw.Description
	}
	if raw.Currency != "" {
		cur := models.Currency(strings.ToUpper(raw.Currency))
		in.Currency = &cur
	}
	return in, nil
}

func sampleFeedData() []feedVehicle {
	mileage := 42500
	power := 190
	engine := 1995
	newPower := 150
	newEngine := 1498
	return []feedVehicle{
		{
			Id:          "EXT-010",
			Condition:   "used",
			Make:        "BMW",
			Model:       "X3",
			Trim:        "xDrive20d",
			Year:        2021,
			Mileage:     &mileage,
			FuelCode:    "D",
			GearboxCode: "A",
			BodyCode:    "SUV",
			Drive:       "4x4",
			PowerHP:     &power,
			EngineCC:    &engine,
			Color:       "Czarny",
			PriceGross:  "159900.00",
			Currency:    "PLN",
			Location:    "Warszawa",
			Description: "Bogato wyposazony egzemplarz z polskiego salonu.",
			Images:      []string{"https://cdn.example.com/ext-010/1.jpg", "https://cdn.example.com/ext-010/2.jpg"},
			Features:    []string{"Nawigacja", "Kamera cofania", "Podgrzewane fotele"},
		},
		{
			Id:          "EXT-011",
			Condition:   "new",
			Make:        "Toyota",
			Model:       "Corolla",
			Trim:        "Comfort",
			Year:        2025,
			FuelCode:    "H",
			GearboxCode: "A",
			BodyCode:    "SED",
			PowerHP:     &newPower,
			EngineCC:    &newEngine,
			Color:       "Bialy",
			PriceGross:  "124900.00",
			Currency:    "PLN",
			Location:    "Krakow",
			Description: "Auto dostepne od reki.",
			Images:      []string{"https://cdn.example.com/ext-011/1.jpg"},
			Features:    []string{"Czujniki parkowania", "Tempomat adaptacyjny"},
		},
	}
}
