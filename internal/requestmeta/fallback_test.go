package requestmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFallbackDevice проверяет подстрочную эвристику: токен mobile
// берёт верх над tablet, при отсутствии обоих — desktop
func TestFallbackDevice(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		expected string
	}{
		{
			name:     "только mobile",
			ua:       "SomeBrowser/1.0 Mobile",
			expected: DeviceMobile,
		},
		{
			name:     "только tablet",
			ua:       "SomeBrowser/1.0 Tablet",
			expected: DeviceTablet,
		},
		{
			name:     "ipad",
			ua:       "SomeBrowser/1.0 iPad",
			expected: DeviceTablet,
		},
		{
			name:     "mobile приоритетнее tablet",
			ua:       "SomeBrowser/1.0 Tablet Mobile",
			expected: DeviceMobile,
		},
		{
			name:     "без токенов",
			ua:       "curl/8.0",
			expected: DeviceDesktop,
		},
		{
			name:     "пустой агент",
			ua:       "",
			expected: DeviceDesktop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fallbackDevice(tt.ua))
		})
	}
}
