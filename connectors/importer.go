package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/models"
	"github.com/tomaszgubala/car-dealer/utils"
)

const moduleName = "connectors"

// ImportStore is the persistence surface the import pipeline runs
// against. Production uses the gorm-backed store; tests swap in an
// in-memory one.
type ImportStore interface {
	CreateJob(ctx context.Context, connector string) (int, error)
	FinalizeJob(ctx context.Context, jobId int, status models.ImportJobStatus, newCount, updatedCount int, errs []string) error
	FindByExternalId(ctx context.Context, source string, externalId string) (*models.Vehicle, error)
	InsertVehicle(ctx context.Context, v *models.Vehicle) error
	UpdateVehicle(ctx context.Context, id int, updates map[string]interface{}) error
}

// CacheInvalidator drops cached listing payloads after a run that may
// have changed inventory.
type CacheInvalidator interface {
	InvalidateListing()
}

// ImportRunResult summarizes one connector's run for API responses and logs.
type ImportRunResult struct {
	Connector    string   `json:"connector"`
	JobId        int      `json:"job_id"`
	Status       string   `json:"status"`
	NewCount     int      `json:"new_count"`
	UpdatedCount int      `json:"updated_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

// Importer drives full import runs: fetch from each connector,
// reconcile every record against stored inventory, and account for the
// run in the import job history. Failures are contained per record and
// per connector; one bad source never blocks the others.
type Importer struct {
	Store        ImportStore
	Cache        CacheInvalidator
	Logger       *logrus.Logger
	FetchTimeout time.Duration

	// Registry overrides the package-level connector list when set.
	Registry []Connector
}

func NewImporter() *Importer {
	return &Importer{
		Store:        GormStore{},
		Cache:        redisCache{},
		Logger:       config.GetLogger(),
		FetchTimeout: 2 * time.Minute,
	}
}

func (im *Importer) connectors() []Connector {
	if im.Registry != nil {
		return im.Registry
	}
	return Connectors()
}

// Run executes an import for the named connector, or for every
// registered connector when name is empty. It returns one result per
// connector attempted; an unknown name selects nothing and returns an
// empty slice.
func (im *Importer) Run(ctx context.Context, name string) []ImportRunResult {
	var targets []Connector
	for _, c := range im.connectors() {
		if name == "" || c.Name() == name {
			targets = append(targets, c)
			if name != "" {
				break
			}
		}
	}

	results := make([]ImportRunResult, 0, len(targets))
	for _, c := range targets {
		results = append(results, im.runOne(ctx, c))
	}
	return results
}

func (im *Importer) runOne(ctx context.Context, c Connector) ImportRunResult {
	funcName := "runOne"
	result := ImportRunResult{Connector: c.Name()}

	jobId, err := im.Store.CreateJob(ctx, c.Name())
	if err != nil {
		config.LogError(im.Logger, moduleName, funcName, "creating import job", c.Name(), err)
		result.Status = string(models.ImportJobStatusFailed)
		result.Errors = []string{"Fatal: " + err.Error()}
		result.ErrorCount = 1
		return result
	}
	result.JobId = jobId

	status := models.ImportJobStatusSuccess
	var errs []string
	var newCount, updatedCount int

	func() {
		defer func() {
			if r := recover(); r != nil {
				status = models.ImportJobStatusFailed
				errs = append(errs, fmt.Sprintf("Fatal: %v", r))
				config.LogError(im.Logger, moduleName, funcName, "import run panicked", c.Name(), fmt.Errorf("%v", r))
			}
		}()

		fetchCtx, cancel := context.WithTimeout(ctx, im.FetchTimeout)
		defer cancel()
		fetched := c.Fetch(fetchCtx)
		errs = append(errs, fetched.Errors...)

		for i := range fetched.Vehicles {
			in := &fetched.Vehicles[i]
			if err := im.reconcile(ctx, c.Name(), in, &newCount, &updatedCount); err != nil {
				errs = append(errs, fmt.Sprintf("[%s] DB error: %s", in.ExternalId, err.Error()))
			}
		}
	}()

	if err := im.Store.FinalizeJob(ctx, jobId, status, newCount, updatedCount, errs); err != nil {
		config.LogError(im.Logger, moduleName, funcName, "finalizing import job", jobId, err)
	}

	if status == models.ImportJobStatusSuccess && im.Cache != nil {
		// Best effort; stale cache entries expire on their own TTL anyway.
		im.Cache.InvalidateListing()
	}

	im.Logger.WithFields(logrus.Fields{
		"connector": c.Name(),
		"job_id":    jobId,
		"status":    status,
		"new":       newCount,
		"updated":   updatedCount,
		"errors":    len(errs),
	}).Info("import run finished")

	result.Status = string(status)
	result.NewCount = newCount
	result.UpdatedCount = updatedCount
	result.ErrorCount = len(errs)
	result.Errors = errs
	return result
}

// reconcile upserts one incoming record. Existing vehicles keep their
// lifecycle fields (type, status, published_at, slug); only listing data
// from the feed is refreshed. New vehicles go live immediately.
func (im *Importer) reconcile(ctx context.Context, source string, in *IncomingVehicle, newCount, updatedCount *int) error {
	existing, err := im.Store.FindByExternalId(ctx, source, in.ExternalId)
	if err != nil {
		return err
	}

	if existing != nil {
		if err := im.Store.UpdateVehicle(ctx, existing.ID, in.updateColumns()); err != nil {
			return err
		}
		*updatedCount++
		return nil
	}

	v := in.toVehicle(source)
	for attempt := 0; attempt < 2; attempt++ {
		v.Slug = utils.MakeVehicleSlug(string(v.Type), v.Make, v.Model, v.Year, utils.RandomSuffix(6))
		err = im.Store.InsertVehicle(ctx, v)
		if err == nil {
			*newCount++
			return nil
		}
		if !utils.IsDuplicateKeyError(err) {
			return err
		}
	}
	// Two distinct random suffixes collided, or the reconciliation key
	// itself is duplicated by a concurrent run.
	return err
}

func (in *IncomingVehicle) toVehicle(source string) *models.Vehicle {
	now := time.Now()
	currency := models.CurrencyPLN
	if in.Currency != nil {
		currency = *in.Currency
	}
	return &models.Vehicle{
		Source:            source,
		SourceExternalId:  &in.ExternalId,
		Type:              in.Type,
		Status:            models.VehicleStatusActive,
		Make:              in.Make,
		Model:             in.Model,
		Trim:              in.Trim,
		Year:              in.Year,
		Mileage:           in.Mileage,
		Fuel:              in.Fuel,
		Gearbox:           in.Gearbox,
		BodyType:          in.BodyType,
		Drive:             in.Drive,
		PowerHP:           in.PowerHP,
		EngineCC:          in.EngineCC,
		Color:             in.Color,
		PriceGross:        in.PriceGross,
		Currency:          currency,
		InstallmentAmount: in.InstallmentAmount,
		Location:          in.Location,
		DescriptionPL:     in.DescriptionPL,
		DescriptionEN:     in.DescriptionEN,
		HasEN:             in.DescriptionEN != nil && *in.DescriptionEN != "",
		Features:          models.StringList(in.Features),
		Images:            models.StringList(in.Images),
		Videos:            models.StringList(in.Videos),
		PublishedAt:       &now,
	}
}

// updateColumns builds the refresh set for an already known vehicle.
// Lifecycle fields are deliberately absent so admin decisions (pulling
// a listing, marking it sold) survive subsequent imports.
func (in *IncomingVehicle) updateColumns() map[string]interface{} {
	currency := models.CurrencyPLN
	if in.Currency != nil {
		currency = *in.Currency
	}
	return map[string]interface{}{
		"make":               in.Make,
		"model":              in.Model,
		"trim":               in.Trim,
		"year":               in.Year,
		"mileage":            in.Mileage,
		"fuel":               in.Fuel,
		"gearbox":            in.Gearbox,
		"body_type":          in.BodyType,
		"drive":              in.Drive,
		"power_hp":           in.PowerHP,
		"engine_cc":          in.EngineCC,
		"color":              in.Color,
		"price_gross":        in.PriceGross,
		"currency":           currency,
		"installment_amount": in.InstallmentAmount,
		"location":           in.Location,
		"description_pl":     in.DescriptionPL,
		"description_en":     in.DescriptionEN,
		"has_en":             in.DescriptionEN != nil && *in.DescriptionEN != "",
		"features":           models.StringList(in.Features),
		"images":             models.StringList(in.Images),
		"videos":             models.StringList(in.Videos),
	}
}

// GormStore is the production ImportStore backed by the shared database.
type GormStore struct{}

func (GormStore) CreateJob(ctx context.Context, connector string) (int, error) {
	job, err := models.CreateImportJob(ctx, connector)
	if err != nil {
		return 0, err
	}
	return job.ID, nil
}

func (GormStore) FinalizeJob(ctx context.Context, jobId int, status models.ImportJobStatus, newCount, updatedCount int, errs []string) error {
	return models.FinalizeImportJob(ctx, jobId, status, newCount, updatedCount, errs)
}

func (GormStore) FindByExternalId(ctx context.Context, source string, externalId string) (*models.Vehicle, error) {
	return models.FindVehicleByExternalId(ctx, source, externalId)
}

func (GormStore) InsertVehicle(ctx context.Context, v *models.Vehicle) error {
	return config.GetDB().WithContext(ctx).Create(v).Error
}

func (GormStore) UpdateVehicle(ctx context.Context, id int, updates map[string]interface{}) error {
	return models.UpdateVehicleFields(ctx, id, updates)
}

type redisCache struct{}

func (redisCache) InvalidateListing() {
	utils.InvalidateListingCache()
}
