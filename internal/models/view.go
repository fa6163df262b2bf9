package models

import (
	"time"
)

// View представляет одну загрузку публичной страницы визитки.
// Строки append-only: никогда не обновляются, удаляются только
// каскадно вместе с карточкой.
type View struct {
	ID         int64     `json:"id"`
	CardID     int64     `json:"cardId"`
	Referrer   *string   `json:"referrer"`
	UserAgent  string    `json:"userAgent"`
	DeviceType string    `json:"deviceType"` // mobile | tablet | desktop
	City       *string   `json:"city"`
	Region     *string   `json:"region"`
	Country    *string   `json:"country"`
	Latitude   *string   `json:"latitude"`  // Хранится текстом, как отдают edge-заголовки
	Longitude  *string   `json:"longitude"`
	IPAddress  *string   `json:"ipAddress"`
	Source     string    `json:"source"` // direct | qr | wallet | ...
	ViewedAt   time.Time `json:"viewedAt"`
}

// ViewMeta метаданные просмотра, извлечённые из входящего запроса
type ViewMeta struct {
	Referrer   *string
	UserAgent  string
	DeviceType string
	City       *string
	Region     *string
	Country    *string
	Latitude   *string
	Longitude  *string
	IPAddress  *string
}
