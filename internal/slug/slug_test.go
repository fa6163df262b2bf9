package slug_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/akarpovich/cardlink/internal/slug"
	"github.com/stretchr/testify/assert"
)

// TestGenerate проверяет генерацию слага из отображаемого имени
func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"простое имя", "David Young", "david-young"},
		{"имя с пунктуацией", "Jane Q. Public", "jane-q-public"},
		{"лишние пробелы", "  Anna   Maria  ", "anna-maria"},
		{"спецсимволы", "O'Brien & Co!", "obrien-co"},
		{"дефисы схлопываются", "a -- b", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slug.Generate(tt.input))
		})
	}
}

// TestGenerate_EmptyName проверяет случайный запасной слаг для пустого имени
func TestGenerate_EmptyName(t *testing.T) {
	for _, input := range []string{"", "   "} {
		got := slug.Generate(input)
		assert.True(t, strings.HasPrefix(got, "card-"), "ожидался префикс card-: %s", got)
		assert.Len(t, got, len("card-")+6)
		assert.True(t, slug.ValidateFormat(got))
	}
}

// TestGenerate_Properties проверяет инварианты результата генерации
func TestGenerate_Properties(t *testing.T) {
	slugChars := regexp.MustCompile(`^[a-z0-9-]*$`)

	names := []string{
		"David Young",
		"UPPER CASE NAME",
		"a",
		strings.Repeat("very long name ", 20),
		"--- leading hyphens",
		"trailing hyphens ---",
		"!@#$%^&*()",
	}

	for _, name := range names {
		got := slug.Generate(name)
		assert.True(t, slugChars.MatchString(got), "недопустимые символы: %q -> %q", name, got)
		assert.LessOrEqual(t, len(got), 50)
		assert.False(t, strings.HasPrefix(got, "-"), "ведущий дефис: %q", got)
		assert.False(t, strings.HasSuffix(got, "-"), "замыкающий дефис: %q", got)
		assert.NotContains(t, got, "--", "двойной дефис: %q", got)
		assert.Equal(t, strings.ToLower(got), got)
	}
}

// TestSanitize проверяет приведение произвольной строки к формату слага
func TestSanitize(t *testing.T) {
	assert.Equal(t, "my-slug", slug.Sanitize("  My--Slug!  "))
	assert.Equal(t, "abc123", slug.Sanitize("ABC123"))
	assert.Equal(t, "", slug.Sanitize("!!!"))
}

// TestValidateFormat проверяет границы формата слага
func TestValidateFormat(t *testing.T) {
	valid := []string{"abc", "my-card-2", "a1b", strings.Repeat("a", 50)}
	invalid := []string{"", "ab", strings.Repeat("a", 51), "With-Caps", "under_score", "with space", "бейдж"}

	for _, s := range valid {
		assert.True(t, slug.ValidateFormat(s), "должен быть валидным: %q", s)
	}
	for _, s := range invalid {
		assert.False(t, slug.ValidateFormat(s), "должен быть невалидным: %q", s)
	}
}

// TestIsReserved проверяет денилист и независимость от регистра
func TestIsReserved(t *testing.T) {
	reserved := []string{"admin", "Admin", "ADMIN", "api", "dashboard", "login", "create"}
	for _, s := range reserved {
		assert.True(t, slug.IsReserved(s), "должен быть зарезервирован: %q", s)
	}

	free := []string{"admin2", "my-card", "davidyoung", ""}
	for _, s := range free {
		assert.False(t, slug.IsReserved(s), "не должен быть зарезервирован: %q", s)
	}
}
