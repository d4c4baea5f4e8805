package models

import (
	"context"
	"sort"
	"time"

	"github.com/tomaszgubala/car-dealer/config"
)

// StatEvent is a single tracked interaction (view, CTA click, share).
// Writes are fire-and-forget: callers log failures and move on.
type StatEvent struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Type      EventType `gorm:"type:enum('PAGE_VIEW','LISTING_VIEW','VEHICLE_VIEW','CTA_CALL','CTA_EMAIL','CTA_FORM','SHARE');not null;index" json:"type"`
	VehicleId *int      `gorm:"index" json:"vehicle_id"`
	IpHash    string    `gorm:"size:16" json:"-"`
	UserAgent *string   `gorm:"size:200" json:"-"`
	Referer   *string   `gorm:"size:500" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func CreateStatEvent(ctx context.Context, eventType EventType, vehicleId *int, ipHash, userAgent, referer string) error {
	db := config.GetDB()
	ev := &StatEvent{
		Type:      eventType,
		VehicleId: vehicleId,
		IpHash:    ipHash,
	}
	if userAgent != "" {
		ua := userAgent
		if len(ua) > 200 {
			ua = ua[:200]
		}
		ev.UserAgent = &ua
	}
	if referer != "" {
		ref := referer
		if len(ref) > 500 {
			ref = ref[:500]
		}
		ev.Referer = &ref
	}
	return db.WithContext(ctx).Create(ev).Error
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type TopVehicleStat struct {
	VehicleId int    `json:"vehicle_id"`
	Slug      string `json:"slug"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Views     int    `json:"views"`
}

type DashboardStats struct {
	TotalVehicles  int64            `json:"total_vehicles"`
	ActiveVehicles int64            `json:"active_vehicles"`
	NewVehicles    int64            `json:"new_vehicles"`
	UsedVehicles   int64            `json:"used_vehicles"`
	EventTotals    map[string]int   `json:"event_totals"`
	DailyViews     []DailyCount     `json:"daily_views"`
	TopVehicles    []TopVehicleStat `json:"top_vehicles"`
	TotalLeads     int64            `json:"total_leads"`
}

// BucketDaily groups timestamps into YYYY-MM-DD counts, sorted ascending.
func BucketDaily(stamps []time.Time) []DailyCount {
	byDay := map[string]int{}
	for _, ts := range stamps {
		byDay[ts.UTC().Format("2006-01-02")]++
	}
	out := make([]DailyCount, 0, len(byDay))
	for day, count := range byDay {
		out = append(out, DailyCount{Date: day, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// GetDashboardStats aggregates the last 30 days for the admin dashboard.
func GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := config.GetDB()
	since := time.Now().Add(-30 * 24 * time.Hour)
	stats := &DashboardStats{EventTotals: map[string]int{}}

	if err := db.WithContext(ctx).Model(&Vehicle{}).Count(&stats.TotalVehicles).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Vehicle{}).
		Where("status = ?", VehicleStatusActive).Count(&stats.ActiveVehicles).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Vehicle{}).
		Where("type = ? AND status = ?", VehicleTypeNew, VehicleStatusActive).Count(&stats.NewVehicles).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Vehicle{}).
		Where("type = ? AND status = ?", VehicleTypeUsed, VehicleStatusActive).Count(&stats.UsedVehicles).Error; err != nil {
		return nil, err
	}

	type typeCount struct {
		Type  string
		Count int
	}
	var totals []typeCount
	if err := db.WithContext(ctx).Model(&StatEvent{}).
		Select("type, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("type").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	for _, tc := range totals {
		stats.EventTotals[tc.Type] = tc.Count
	}

	var viewStamps []time.Time
	if err := db.WithContext(ctx).Model(&StatEvent{}).
		Where("type = ? AND created_at >= ?", EventTypeVehicleView, since).
		Pluck("created_at", &viewStamps).Error; err != nil {
		return nil, err
	}
	stats.DailyViews = BucketDaily(viewStamps)

	if err := db.WithContext(ctx).Model(&StatEvent{}).
		Select("stat_events.vehicle_id, vehicles.slug, vehicles.make, vehicles.model, COUNT(*) AS views").
		Joins("JOIN vehicles ON vehicles.id = stat_events.vehicle_id").
		Where("stat_events.type = ? AND stat_events.vehicle_id IS NOT NULL AND stat_events.created_at >= ?", EventTypeVehicleView, since).
		Group("stat_events.vehicle_id, vehicles.slug, vehicles.make, vehicles.model").
		Order("views DESC").
		Limit(10).
		Scan(&stats.TopVehicles).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(&Lead{}).Count(&stats.TotalLeads).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
