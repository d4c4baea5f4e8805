package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/tomaszgubala/car-dealer/models"
)

// IncomingVehicle is the normalized record every connector must emit.
// Connectors translate whatever their upstream speaks into this shape,
// so the import pipeline only ever validates and persists one format.
type IncomingVehicle struct {
	ExternalId        string             `json:"externalId" validate:"required"`
	Type              models.VehicleType `json:"type" validate:"required,oneof=NEW USED"`
	Make              string             `json:"make" validate:"required"`
	Model             string             `json:"model" validate:"required"`
	Trim              *string            `json:"trim,omitempty"`
	Year              int                `json:"year" validate:"required,min=1900"`
	Mileage           *int               `json:"mileage,omitempty" validate:"omitempty,min=0"`
	Fuel              *string            `json:"fuel,omitempty"`
	Gearbox           *string            `json:"gearbox,omitempty"`
	BodyType          *string            `json:"bodyType,omitempty"`
	Drive             *string            `json:"drive,omitempty"`
	PowerHP           *int               `json:"powerHp,omitempty" validate:"omitempty,min=1,max=2000"`
	EngineCC          *int               `json:"engineCc,omitempty" validate:"omitempty,min=1"`
	Color             *string            `json:"color,omitempty"`
	PriceGross        decimal.Decimal    `json:"priceGross"`
	Currency          *models.Currency   `json:"currency,omitempty" validate:"omitempty,oneof=PLN EUR"`
	InstallmentAmount *decimal.Decimal   `json:"installmentAmount,omitempty"`
	Location          *string            `json:"location,omitempty"`
	DescriptionPL     *string            `json:"descriptionPl,omitempty" validate:"omitempty,max=10000"`
	DescriptionEN     *string            `json:"descriptionEn,omitempty" validate:"omitempty,max=10000"`
	Images            []string           `json:"images,omitempty" validate:"omitempty,max=30,dive,required,url"`
	Videos            []string           `json:"videos,omitempty" validate:"omitempty,max=5,dive,required"`
	Features          []string           `json:"features,omitempty" validate:"omitempty,max=100,dive,required"`
}

// ConnectorResult carries everything a single fetch produced. A fetch
// that fails entirely still returns a result, with the failure recorded
// in Errors, so one broken upstream never aborts the whole run.
type ConnectorResult struct {
	Vehicles []IncomingVehicle
	Errors   []string
}

// Connector is implemented once per external inventory source.
// Fetch must not panic for expected failure modes (network, bad
// payloads); it reports them through ConnectorResult.Errors.
type Connector interface {
	Name() string
	Fetch(ctx context.Context) ConnectorResult
}

var validate = validator.New()

// ValidateIncomingVehicle checks a record against the intake rules and
// reports every violation at once, so a single bad record shows the full
// list of what the upstream got wrong instead of one field per run.
func ValidateIncomingVehicle(in *IncomingVehicle) error {
	var problems []string

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, describeViolation(fe))
			}
		} else {
			return err
		}
	}

	maxYear := time.Now().Year() + 2
	if in.Year > maxYear {
		problems = append(problems, fmt.Sprintf("year must not exceed %d", maxYear))
	}
	if in.PriceGross.IsNegative() {
		problems = append(problems, "priceGross must not be negative")
	}
	if in.InstallmentAmount != nil && in.InstallmentAmount.IsNegative() {
		problems = append(problems, "installmentAmount must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

func describeViolation(fe validator.FieldError) string {
	field := fieldLabel(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func fieldLabel(fe validator.FieldError) string {
	// StructNamespace looks like "IncomingVehicle.Images[3]"; drop the
	// struct prefix and lowercase the first letter to match json names.
	ns := fe.StructNamespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	if ns == "" {
		return fe.Field()
	}
	return strings.ToLower(ns[:1]) + ns[1:]
}
