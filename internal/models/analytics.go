package models

import (
	"time"
)

// DailyStat количество просмотров и кликов за один календарный день (UTC)
type DailyStat struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
}

// ClickBreakdownItem клики, сгруппированные по паре (type, targetInfo)
type ClickBreakdownItem struct {
	Type       string `json:"type"`
	TargetInfo string `json:"targetInfo"`
	Count      int64  `json:"count"`
}

// GeoPoint один просмотр с геометкой для карты
type GeoPoint struct {
	City      *string   `json:"city"`
	Region    *string   `json:"region"`
	Country   *string   `json:"country"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	ViewedAt  time.Time `json:"viewedAt"`
}

// BucketCount счётчик просмотров по метке (устройство, источник трафика)
type BucketCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// AnalyticsReport полный отчёт по карточке за период
type AnalyticsReport struct {
	TotalViews     int64                `json:"totalViews"`
	TotalClicks    int64                `json:"totalClicks"`
	CTR            float64              `json:"ctr"` // totalClicks / totalViews * 100
	DailyStats     []DailyStat          `json:"dailyStats"`
	ClickBreakdown []ClickBreakdownItem `json:"clickBreakdown"`
	GeoStats       []GeoPoint           `json:"geoStats"`
	DeviceStats    []BucketCount        `json:"deviceStats"`
	SourceStats    []BucketCount        `json:"sourceStats"`
}

// DateRange диапазон дат отчёта, включительно с обеих сторон
type DateRange struct {
	Start time.Time
	End   time.Time
}
