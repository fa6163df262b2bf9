// Package requestmeta извлекает метаданные просмотра из входящего
// HTTP-запроса: referrer, user-agent, тип устройства, грубую геолокацию
// и клиентский IP. Обёртка вокруг github.com/avct/uasurfer изолирует
// его enum'ы от остального кода.
package requestmeta

import (
	"net/http"
	"strings"

	surfer "github.com/avct/uasurfer"

	"github.com/akarpovich/cardlink/internal/models"
)

// Классификация устройства
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Заголовки геолокации, проставляемые edge-инфраструктурой.
// Все опциональны: при отсутствии поля остаются nil.
const (
	headerCity      = "x-vercel-ip-city"
	headerRegion    = "x-vercel-ip-country-region"
	headerCountry   = "x-vercel-ip-country"
	headerLatitude  = "x-vercel-ip-latitude"
	headerLongitude = "x-vercel-ip-longitude"
)

// FromRequest собирает метаданные просмотра из запроса
func FromRequest(r *http.Request) models.ViewMeta {
	ua := r.UserAgent()

	return models.ViewMeta{
		Referrer:   referrer(r),
		UserAgent:  ua,
		DeviceType: DeviceType(ua),
		City:       headerValue(r, headerCity),
		Region:     headerValue(r, headerRegion),
		Country:    headerValue(r, headerCountry),
		Latitude:   headerValue(r, headerLatitude),
		Longitude:  headerValue(r, headerLongitude),
		IPAddress:  clientIP(r),
	}
}

// DeviceType классифицирует user-agent как mobile, tablet или desktop.
// Основная классификация через uasurfer; для нераспознанных агентов
// остаётся подстрочная эвристика.
func DeviceType(ua string) string {
	parsed := surfer.Parse(ua)

	switch parsed.DeviceType {
	case surfer.DevicePhone, surfer.DeviceWearable:
		return DeviceMobile
	case surfer.DeviceTablet:
		return DeviceTablet
	case surfer.DeviceComputer:
		return DeviceDesktop
	}

	return fallbackDevice(ua)
}

// fallbackDevice — подстрочная эвристика для нераспознанных агентов.
// Токен mobile имеет приоритет над tablet.
func fallbackDevice(ua string) string {
	lower := strings.ToLower(ua)
	if strings.Contains(lower, "mobile") {
		return DeviceMobile
	}
	if strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad") {
		return DeviceTablet
	}
	return DeviceDesktop
}

func referrer(r *http.Request) *string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		ref = r.Header.Get("Referrer")
	}
	if ref == "" {
		return nil
	}
	return &ref
}

// clientIP берёт x-real-ip, затем первый адрес из x-forwarded-for
func clientIP(r *http.Request) *string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return &ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip != "" {
			return &ip
		}
	}
	return nil
}

func headerValue(r *http.Request, name string) *string {
	v := r.Header.Get(name)
	if v == "" {
		return nil
	}
	return &v
}
