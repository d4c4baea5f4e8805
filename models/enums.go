package models

type VehicleType string

const (
	VehicleTypeNew  VehicleType = "NEW"
	VehicleTypeUsed VehicleType = "USED"
)

func (t VehicleType) Valid() bool {
	return t == VehicleTypeNew || t == VehicleTypeUsed
}

type VehicleStatus string

const (
	VehicleStatusActive   VehicleStatus = "ACTIVE"
	VehicleStatusInactive VehicleStatus = "INACTIVE"
	VehicleStatusReserved VehicleStatus = "RESERVED"
	VehicleStatusSold     VehicleStatus = "SOLD"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusActive, VehicleStatusInactive, VehicleStatusReserved, VehicleStatusSold:
		return true
	}
	return false
}

type Currency string

const (
	CurrencyPLN Currency = "PLN"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) Valid() bool {
	return c == CurrencyPLN || c == CurrencyEUR
}

// SourceManual marks vehicles entered through the admin form. Imported
// vehicles carry the connector name instead.
const SourceManual = "manual"

type ImportJobStatus string

const (
	ImportJobStatusRunning ImportJobStatus = "RUNNING"
	ImportJobStatusSuccess ImportJobStatus = "SUCCESS"
	ImportJobStatusFailed  ImportJobStatus = "FAILED"
)

type EventType string

const (
	EventTypePageView    EventType = "PAGE_VIEW"
	EventTypeListingView EventType = "LISTING_VIEW"
	EventTypeVehicleView EventType = "VEHICLE_VIEW"
	EventTypeCtaCall     EventType = "CTA_CALL"
	EventTypeCtaEmail    EventType = "CTA_EMAIL"
	EventTypeCtaForm     EventType = "CTA_FORM"
	EventTypeShare       EventType = "SHARE"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypePageView, EventTypeListingView, EventTypeVehicleView,
		EventTypeCtaCall, EventTypeCtaEmail, EventTypeCtaForm, EventTypeShare:
		return true
	}
	return false
}

type LeadType string

const (
	LeadTypeInquiry   LeadType = "inquiry"
	LeadTypeTestDrive LeadType = "test_drive"
)

func (t LeadType) Valid() bool {
	return t == LeadTypeInquiry || t == LeadTypeTestDrive
}

type UserRole string

const (
	UserRoleAdmin  UserRole = "ADMIN"
	UserRoleEditor UserRole = "EDITOR"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleEditor
}
