package models

import (
	"context"
	"errors"
	"time"

	"github.com/tomaszgubala/car-dealer/config"
)

// Lead is a buyer inquiry captured on a vehicle detail page or the contact
// page. Only a salted hash of the client IP is retained.
type Lead struct {
	ID        int       `gorm:"primary_key" json:"id"`
	VehicleId *int      `gorm:"index" json:"vehicle_id"`
	Type      LeadType  `gorm:"type:enum('inquiry','test_drive');not null" json:"type"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:200;not null" json:"email"`
	Phone     *string   `gorm:"size:20" json:"phone"`
	Message   *string   `gorm:"type:text" json:"message"`
	IpHash    string    `gorm:"size:16" json:"-"`
	UserAgent *string   `gorm:"size:200" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleId" json:"vehicle,omitempty"`
}

type NewLead struct {
	VehicleId *int     `json:"vehicle_id"`
	Type      LeadType `json:"type" binding:"required,oneof=inquiry test_drive"`
	Name      string   `json:"name" binding:"required,min=2,max=100"`
	Email     string   `json:"email" binding:"required,email,max=200"`
	Phone     *string  `json:"phone" binding:"omitempty,max=20"`
	Message   *string  `json:"message" binding:"omitempty,max=2000"`
	// Honeypot field: bots fill it, humans never see it.
	Website string `json:"website"`
}

func CreateLead(ctx context.Context, input *NewLead, ipHash string, userAgent string) (*Lead, error) {
	if !input.Type.Valid() {
		return nil, errors.New("invalid lead type")
	}
	db := config.GetDB()
	lead := &Lead{
		VehicleId: input.VehicleId,
		Type:      input.Type,
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Message:   input.Message,
		IpHash:    ipHash,
	}
	if userAgent != "" {
		ua := userAgent
		if len(ua) > 200 {
			ua = ua[:200]
		}
		lead.UserAgent = &ua
	}
	if err := db.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, err
	}
	return lead, nil
}

func ListRecentLeads(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	db := config.GetDB()
	var leads []Lead
	err := db.WithContext(ctx).
		Preload("Vehicle").
		Order("created_at DESC").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}
