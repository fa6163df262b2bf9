package models

import (
	"encoding/json"
	"time"
)

// Card представляет одну визитку (опубликованную или черновик).
// Поле Data хранится как непрозрачный JSON-документ: бэкенд не
// валидирует его внутреннюю структуру, только "это объект".
type Card struct {
	ID        int64           `json:"id"`
	UID       string          `json:"uid"`    // Публичный идентификатор (не используется для поиска)
	OwnerID   string          `json:"userId"` // Идентификатор из внешнего auth-провайдера
	Data      json.RawMessage `json:"data"`
	Slug      *string         `json:"slug"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CardWithViews карточка с посчитанным количеством просмотров (для дашборда)
type CardWithViews struct {
	Card
	ViewCount int64 `json:"viewCount"`
}

// SaveCardInput входные данные операции create-or-update
type SaveCardInput struct {
	Data    json.RawMessage // Содержимое карточки (обязательно)
	CardID  *int64          // nil — создание, иначе обновление по id
	OwnerID string
}

// SlugCheck результат проверки доступности слага
type SlugCheck struct {
	Available  bool   `json:"available"`
	Reason     string `json:"reason,omitempty"`     // "reserved" | "taken"
	Suggestion string `json:"suggestion,omitempty"` // Альтернатива, если слаг недоступен
}
