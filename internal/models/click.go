package models

import (
	"time"
)

// Click представляет одно отслеживаемое взаимодействие на публичной
// визитке: клик по соцсети, контактное действие, показ медиа.
type Click struct {
	ID         int64     `json:"id"`
	CardID     int64     `json:"cardId"`
	Type       string    `json:"type"`       // social | contact | media | ...
	TargetInfo string    `json:"targetInfo"` // Платформа, URL или тип медиа
	UserAgent  string    `json:"userAgent"`
	ClickedAt  time.Time `json:"clickedAt"`
}
