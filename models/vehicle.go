package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/utils"
	"gorm.io/gorm"
)

// Vehicle is one sellable unit of inventory. Rows are never deleted; taking a
// vehicle off the site is a status transition to INACTIVE.
//
// (Source, SourceExternalId) is the reconciliation key for imported records:
// the composite unique index guarantees at most one vehicle per external id,
// also under concurrent import runs. MySQL permits any number of NULL external
// ids, which is what manual records use.
type Vehicle struct {
	ID               int     `gorm:"primary_key" json:"id"`
	Slug             string  `gorm:"uniqueIndex;size:191;not null" json:"slug"`
	Source           string  `gorm:"uniqueIndex:idx_vehicle_source_external,priority:1;size:50;not null;default:'manual'" json:"source"`
	SourceExternalId *string `gorm:"uniqueIndex:idx_vehicle_source_external,priority:2;size:128" json:"source_external_id"`

	Type   VehicleType   `gorm:"type:enum('NEW','USED');not null" json:"type"`
	Status VehicleStatus `gorm:"type:enum('ACTIVE','INACTIVE','RESERVED','SOLD');not null;default:'ACTIVE';index" json:"status"`

	Make     string  `gorm:"size:100;not null;index" json:"make"`
	Model    string  `gorm:"size:100;not null" json:"model"`
	Trim     *string `gorm:"size:200" json:"trim"`
	Year     int     `gorm:"not null" json:"year"`
	Mileage  *int    `json:"mileage"`
	Fuel     *string `gorm:"size:50" json:"fuel"`
	Gearbox  *string `gorm:"size:50" json:"gearbox"`
	BodyType *string `gorm:"size:50" json:"body_type"`
	Drive    *string `gorm:"size:50" json:"drive"`
	PowerHP  *int    `json:"power_hp"`
	EngineCC *int    `json:"engine_cc"`
	Color    *string `gorm:"size:50" json:"color"`
	Vin      *string `gorm:"size:32" json:"vin"`
	Doors    *int    `json:"doors"`
	Seats    *int    `json:"seats"`

	PriceGross             decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"price_gross"`
	Currency               Currency         `gorm:"type:enum('PLN','EUR');not null;default:'PLN'" json:"currency"`
	InstallmentAmount      *decimal.Decimal `gorm:"type:decimal(20,2)" json:"installment_amount"`
	InstallmentTermMonths  *int             `json:"installment_term_months"`
	InstallmentDownPayment *decimal.Decimal `gorm:"type:decimal(20,2)" json:"installment_down_payment"`
	InstallmentBalloon     *decimal.Decimal `gorm:"type:decimal(20,2)" json:"installment_balloon"`

	Location      *string    `gorm:"size:100" json:"location"`
	DescriptionPL *string    `gorm:"type:text" json:"description_pl"`
	DescriptionEN *string    `gorm:"type:text" json:"description_en"`
	HasEN         bool       `gorm:"not null;default:false" json:"has_en"`
	Features      StringList `gorm:"type:json" json:"features"`
	Images        StringList `gorm:"type:json" json:"images"`
	Videos        StringList `gorm:"type:json" json:"videos"`

	Promoted      bool       `gorm:"not null;default:false" json:"promoted"`
	PromotedUntil *time.Time `json:"promoted_until"`

	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewVehicle is the admin form payload for creating or editing a vehicle.
type NewVehicle struct {
	Type   VehicleType   `json:"type" binding:"required"`
	Status VehicleStatus `json:"status"`

	Make     string  `json:"make" binding:"required,max=100"`
	Model    string  `json:"model" binding:"required,max=100"`
	Trim     *string `json:"trim" binding:"omitempty,max=200"`
	Year     int     `json:"year" binding:"required,min=1900,max=2100"`
	Mileage  *int    `json:"mileage" binding:"omitempty,min=0"`
	Fuel     *string `json:"fuel" binding:"omitempty,max=50"`
	Gearbox  *string `json:"gearbox" binding:"omitempty,max=50"`
	BodyType *string `json:"body_type" binding:"omitempty,max=50"`
	Drive    *string `json:"drive" binding:"omitempty,max=50"`
	PowerHP  *int    `json:"power_hp" binding:"omitempty,min=1,max=2000"`
	EngineCC *int    `json:"engine_cc"`
	Color    *string `json:"color" binding:"omitempty,max=50"`
	Vin      *string `json:"vin" binding:"omitempty,max=32"`
	Doors    *int    `json:"doors" binding:"omitempty,min=1,max=9"`
	Seats    *int    `json:"seats" binding:"omitempty,min=1,max=99"`

	PriceGross             decimal.Decimal  `json:"price_gross" binding:"required"`
	Currency               Currency         `json:"currency"`
	InstallmentAmount      *decimal.Decimal `json:"installment_amount"`
	InstallmentTermMonths  *int             `json:"installment_term_months"`
	InstallmentDownPayment *decimal.Decimal `json:"installment_down_payment"`
	InstallmentBalloon     *decimal.Decimal `json:"installment_balloon"`

	Location      *string    `json:"location" binding:"omitempty,max=100"`
	DescriptionPL *string    `json:"description_pl" binding:"omitempty,max=10000"`
	DescriptionEN *string    `json:"description_en" binding:"omitempty,max=10000"`
	Features      StringList `json:"features" binding:"omitempty,max=100"`
	Images        StringList `json:"images" binding:"omitempty,max=30"`
	Videos        StringList `json:"videos" binding:"omitempty,max=5"`

	Promoted      bool       `json:"promoted"`
	PromotedUntil *time.Time `json:"promoted_until"`
}

func (input *NewVehicle) normalize() error {
	if input.Status == "" {
		input.Status = VehicleStatusActive
	}
	if !input.Status.Valid() {
		return errors.New("invalid status")
	}
	if !input.Type.Valid() {
		return errors.New("invalid vehicle type")
	}
	if input.Currency == "" {
		input.Currency = CurrencyPLN
	}
	if !input.Currency.Valid() {
		return errors.New("invalid currency")
	}
	if input.PriceGross.IsNegative() {
		return errors.New("price must not be negative")
	}
	return nil
}

func (input *NewVehicle) apply(v *Vehicle) {
	v.Type = input.Type
	v.Make = input.Make
	v.Model = input.Model
	v.Trim = input.Trim
	v.Year = input.Year
	v.Mileage = input.Mileage
	v.Fuel = input.Fuel
	v.Gearbox = input.Gearbox
	v.BodyType = input.BodyType
	v.Drive = input.Drive
	v.PowerHP = input.PowerHP
	v.EngineCC = input.EngineCC
	v.Color = input.Color
	v.Vin = input.Vin
	v.Doors = input.Doors
	v.Seats = input.Seats
	v.PriceGross = input.PriceGross
	v.Currency = input.Currency
	v.InstallmentAmount = input.InstallmentAmount
	v.InstallmentTermMonths = input.InstallmentTermMonths
	v.InstallmentDownPayment = input.InstallmentDownPayment
	v.InstallmentBalloon = input.InstallmentBalloon
	v.Location = input.Location
	v.DescriptionPL = input.DescriptionPL
	v.DescriptionEN = input.DescriptionEN
	v.HasEN = input.DescriptionEN != nil && *input.DescriptionEN != ""
	v.Features = input.Features
	v.Images = input.Images
	v.Videos = input.Videos
	v.Promoted = input.Promoted
	v.PromotedUntil = input.PromotedUntil
}

// CreateVehicle creates a manually entered vehicle. A slug collision is
// retried once with a fresh suffix; a second collision surfaces as
// utils.ErrorSlugConflict.
func CreateVehicle(ctx context.Context, input *NewVehicle) (*Vehicle, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	v := &Vehicle{Source: SourceManual, Status: input.Status}
	input.apply(v)
	if v.Status == VehicleStatusActive {
		now := time.Now()
		v.PublishedAt = &now
	}

	if err := InsertVehicleWithSlug(ctx, v); err != nil {
		return nil, err
	}
	utils.InvalidateListingCache()
	return v, nil
}

// InsertVehicleWithSlug mints the slug and inserts, retrying exactly once on a
// unique-key violation before giving up. This backs the admin create form; the
// import pipeline runs the same mint-and-retry against its own store.
func InsertVehicleWithSlug(ctx context.Context, v *Vehicle) error {
	db := config.GetDB()
	for attempt := 0; attempt < 2; attempt++ {
		v.Slug = utils.MakeVehicleSlug(string(v.Type), v.Make, v.Model, v.Year, utils.RandomSuffix(6))
		err := db.WithContext(ctx).Create(v).Error
		if err == nil {
			return nil
		}
		if !utils.IsDuplicateKeyError(err) {
			return err
		}
		if attempt == 1 {
			return fmt.Errorf("%w: %s", utils.ErrorSlugConflict, v.Slug)
		}
	}
	return nil
}

// UpdateVehicle applies an admin edit. PublishedAt is written exactly once,
// on the first transition to ACTIVE; later edits leave it alone.
func UpdateVehicle(ctx context.Context, id int, input *NewVehicle) (*Vehicle, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	v, err := GetVehicleById(ctx, id)
	if err != nil {
		return nil, err
	}

	input.apply(v)
	if input.Status != v.Status {
		if input.Status == VehicleStatusActive && v.PublishedAt == nil {
			now := time.Now()
			v.PublishedAt = &now
		}
		v.Status = input.Status
	}

	if err := db.WithContext(ctx).Save(v).Error; err != nil {
		return nil, err
	}
	utils.InvalidateListingCache()
	return v, nil
}

// SetVehicleStatus is the status-only transition used by the admin list view.
// "Delete" routes here with INACTIVE; vehicles are never physically removed.
func SetVehicleStatus(ctx context.Context, id int, status VehicleStatus) (*Vehicle, error) {
	if !status.Valid() {
		return nil, errors.New("invalid status")
	}
	db := config.GetDB()
	v, err := GetVehicleById(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if status == VehicleStatusActive && v.PublishedAt == nil {
		updates["published_at"] = time.Now()
	}
	if err := db.WithContext(ctx).Model(v).Updates(updates).Error; err != nil {
		return nil, err
	}
	utils.InvalidateListingCache()
	return GetVehicleById(ctx, id)
}

func GetVehicleById(ctx context.Context, id int) (*Vehicle, error) {
	db := config.GetDB()
	var v Vehicle
	err := db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVehicleBySlug serves the public detail page: ACTIVE vehicles only,
// cached for a couple of minutes.
func GetVehicleBySlug(ctx context.Context, slug string) (*Vehicle, error) {
	cacheKey := "vehicle:" + slug
	var cached Vehicle
	if utils.CacheGet(cacheKey, &cached) {
		return &cached, nil
	}

	db := config.GetDB()
	var v Vehicle
	err := db.WithContext(ctx).
		Where("slug = ? AND status = ?", slug, VehicleStatusActive).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}

	utils.CacheSet(cacheKey, &v, utils.VehicleCacheTTL)
	return &v, nil
}

// FindVehicleByExternalId resolves the reconciliation key. Returns (nil, nil)
// when no vehicle matches.
func FindVehicleByExternalId(ctx context.Context, source string, externalId string) (*Vehicle, error) {
	db := config.GetDB()
	var v Vehicle
	err := db.WithContext(ctx).
		Where("source = ? AND source_external_id = ?", source, externalId).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateVehicleFields applies a partial column update (import reconciliation).
func UpdateVehicleFields(ctx context.Context, id int, updates map[string]interface{}) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Vehicle{}).Where("id = ?", id).Updates(updates).Error
}

// VehicleFilter is the public listing query. Multi-value fields arrive as
// repeated query params.
type VehicleFilter struct {
	Type        string   `form:"type"`
	Make        []string `form:"make"`
	Model       []string `form:"model"`
	Fuel        []string `form:"fuel"`
	Gearbox     []string `form:"gearbox"`
	BodyType    []string `form:"bodyType"`
	Drive       []string `form:"drive"`
	Location    []string `form:"location"`
	YearFrom    int      `form:"yearFrom"`
	YearTo      int      `form:"yearTo"`
	MileageFrom *int     `form:"mileageFrom"`
	MileageTo   *int     `form:"mileageTo"`
	PriceFrom   *float64 `form:"priceFrom"`
	PriceTo     *float64 `form:"priceTo"`
	OnlyEN      bool     `form:"onlyEN"`
	Q           string   `form:"q"`

	// Status is never bound from the query string; admin handlers set it
	// to a concrete status or "ALL" to see unpublished inventory.
	Status string `form:"-" json:"-"`

	Sort  string `form:"sort"`
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
}

func (f *VehicleFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = config.DefaultPageLimit
	}
	if f.Limit > 50 {
		f.Limit = 50
	}
}

func (f *VehicleFilter) cacheKey() string {
	b, _ := json.Marshal(f)
	return "listing:" + string(b)
}

func (f *VehicleFilter) apply(q *gorm.DB) *gorm.DB {
	switch f.Status {
	case "":
		q = q.Where("status = ?", VehicleStatusActive)
	case "ALL":
	default:
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if len(f.Make) > 0 {
		q = q.Where("make IN ?", f.Make)
	}
	if len(f.Model) > 0 {
		q = q.Where("model IN ?", f.Model)
	}
	if len(f.Fuel) > 0 {
		q = q.Where("fuel IN ?", f.Fuel)
	}
	if len(f.Gearbox) > 0 {
		q = q.Where("gearbox IN ?", f.Gearbox)
	}
	if len(f.BodyType) > 0 {
		q = q.Where("body_type IN ?", f.BodyType)
	}
	if len(f.Drive) > 0 {
		q = q.Where("drive IN ?", f.Drive)
	}
	if len(f.Location) > 0 {
		q = q.Where("location IN ?", f.Location)
	}
	if f.OnlyEN {
		q = q.Where("has_en = ?", true)
	}
	if f.YearFrom > 0 {
		q = q.Where("year >= ?", f.YearFrom)
	}
	if f.YearTo > 0 {
		q = q.Where("year <= ?", f.YearTo)
	}
	if f.MileageFrom != nil {
		q = q.Where("mileage >= ?", *f.MileageFrom)
	}
	if f.MileageTo != nil {
		q = q.Where("mileage <= ?", *f.MileageTo)
	}
	if f.PriceFrom != nil {
		q = q.Where("price_gross >= ?", *f.PriceFrom)
	}
	if f.PriceTo != nil {
		q = q.Where("price_gross <= ?", *f.PriceTo)
	}
	if f.Q != "" {
		like := "%" + f.Q + "%"
		q = q.Where(
			"make LIKE ? OR model LIKE ? OR trim LIKE ? OR vin LIKE ? OR description_pl LIKE ?",
			like, like, like, like, like,
		)
	}
	return q
}

// orderClause keeps promoted vehicles on top for every sort option.
func (f *VehicleFilter) orderClause() string {
	switch f.Sort {
	case "cheapest":
		return "promoted DESC, price_gross ASC"
	case "expensive":
		return "promoted DESC, price_gross DESC"
	case "low_mileage":
		return "promoted DESC, mileage ASC"
	case "year_desc":
		return "promoted DESC, year DESC"
	default:
		return "promoted DESC, published_at DESC"
	}
}

// ListVehicles serves the public listing with a short-lived cache. Import runs
// and admin edits invalidate it via utils.InvalidateListingCache.
func ListVehicles(ctx context.Context, filter *VehicleFilter) (*Page[Vehicle], error) {
	filter.normalize()

	// Admin queries see fresh data; only the public ACTIVE view is cached.
	useCache := filter.Status == ""
	cacheKey := filter.cacheKey()
	if useCache {
		var cached Page[Vehicle]
		if utils.CacheGet(cacheKey, &cached) {
			return &cached, nil
		}
	}

	db := config.GetDB()
	base := filter.apply(db.WithContext(ctx).Model(&Vehicle{}))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	var vehicles []Vehicle
	err := filter.apply(db.WithContext(ctx).Model(&Vehicle{})).
		Order(filter.orderClause()).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}

	page := NewPage(vehicles, total, filter.Page, filter.Limit)
	if useCache {
		utils.CacheSet(cacheKey, page, utils.ListingCacheTTL)
	}
	return page, nil
}

// GetSimilarVehicles returns same-make, same-type active vehicles for the
// detail page rail, padding with same-type vehicles when the make is thin.
func GetSimilarVehicles(ctx context.Context, vehicleId int, make string, vehicleType VehicleType, limit int) ([]Vehicle, error) {
	db := config.GetDB()
	var vehicles []Vehicle
	err := db.WithContext(ctx).
		Where("id != ? AND make = ? AND type = ? AND status = ?", vehicleId, make, vehicleType, VehicleStatusActive).
		Order("promoted DESC, published_at DESC").
		Limit(limit).
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	if len(vehicles) >= 3 {
		return vehicles, nil
	}

	err = db.WithContext(ctx).
		Where("id != ? AND type = ? AND status = ?", vehicleId, vehicleType, VehicleStatusActive).
		Order("promoted DESC, published_at DESC").
		Limit(limit).
		Find(&vehicles).Error
	return vehicles, err
}

// FilterOptions aggregates the distinct values driving the listing filter UI.
type FilterOptions struct {
	Makes      []string            `json:"makes"`
	MakeModels map[string][]string `json:"make_models"`
	Fuels      []string            `json:"fuels"`
	Gearboxes  []string            `json:"gearboxes"`
	BodyTypes  []string            `json:"body_types"`
	Drives     []string            `json:"drives"`
	Locations  []string            `json:"locations"`
}

func GetFilterOptions(ctx context.Context) (*FilterOptions, error) {
	cacheKey := "filters:options"
	var cached FilterOptions
	if utils.CacheGet(cacheKey, &cached) {
		return &cached, nil
	}

	db := config.GetDB()

	type makeModel struct {
		Make  string
		Model string
	}
	var makeModels []makeModel
	if err := db.WithContext(ctx).Model(&Vehicle{}).
		Distinct("make", "model").
		Where("status = ?", VehicleStatusActive).
		Order("make, model").
		Find(&makeModels).Error; err != nil {
		return nil, err
	}

	opts := &FilterOptions{MakeModels: map[string][]string{}}
	for _, mm := range makeModels {
		if _, seen := opts.MakeModels[mm.Make]; !seen {
			opts.Makes = append(opts.Makes, mm.Make)
		}
		opts.MakeModels[mm.Make] = append(opts.MakeModels[mm.Make], mm.Model)
	}

	for column, dest := range map[string]*[]string{
		"fuel":      &opts.Fuels,
		"gearbox":   &opts.Gearboxes,
		"body_type": &opts.BodyTypes,
		"drive":     &opts.Drives,
		"location":  &opts.Locations,
	} {
		if err := db.WithContext(ctx).Model(&Vehicle{}).
			Distinct(column).
			Where("status = ? AND "+column+" IS NOT NULL", VehicleStatusActive).
			Order(column).
			Pluck(column, dest).Error; err != nil {
			return nil, err
		}
	}

	utils.CacheSet(cacheKey, opts, utils.FilterOptionsCacheTTL)
	return opts, nil
}
