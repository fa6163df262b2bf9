// Package slug содержит чистые функции работы со слагами:
// генерация из имени, санитизация, проверка формата и резервов.
package slug

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	minLength = 3
	maxLength = 50

	randomSuffixLen = 6
	randomCharset   = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	invalidChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	multiHyphen  = regexp.MustCompile(`-+`)
	notSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	validSlug    = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Слаги, занятые под маршруты приложения; сравнение без учёта регистра
var reservedSlugs = map[string]struct{}{
	"admin": {}, "api": {}, "app": {}, "auth": {},
	"card": {}, "cards": {}, "dashboard": {},
	"login": {}, "logout": {}, "signup": {},
	"settings": {}, "profile": {}, "user": {}, "users": {},
	"new": {}, "edit": {}, "delete": {}, "create": {},
}

// Generate строит URL-безопасный слаг из отображаемого имени:
// "Jane Q. Public" -> "jane-q-public". Для пустого имени возвращает
// случайный запасной вариант вида "card-a1b2c3".
func Generate(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "card-" + randomSuffix(randomSuffixLen)
	}

	s := strings.ToLower(name)
	s = invalidChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	// Обрезка может заново оставить дефис на конце
	return strings.TrimRight(truncate(s, maxLength), "-")
}

// Sanitize приводит произвольную строку к допустимому формату слага
func Sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = notSlugChars.ReplaceAllString(s, "")
	s = multiHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return truncate(s, maxLength)
}

// ValidateFormat проверяет формат: 3-50 символов, только [a-z0-9-]
func ValidateFormat(s string) bool {
	if len(s) < minLength || len(s) > maxLength {
		return false
	}
	return validSlug.MatchString(s)
}

// IsReserved проверяет вхождение в список зарезервированных слагов
func IsReserved(s string) bool {
	_, ok := reservedSlugs[strings.ToLower(s)]
	return ok
}

// RandomSuffix экспортирует генерацию случайного суффикса для
// подбора альтернативы, когда инкрементный перебор исчерпан
func RandomSuffix(n int) string {
	return randomSuffix(n)
}

func randomSuffix(n int) string {
	result := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(randomCharset))))
		if err != nil {
			// crypto/rand недоступен только при деградации системы;
			// откатываемся на детерминированный символ
			result[i] = 'x'
			continue
		}
		result[i] = randomCharset[num.Int64()]
	}
	return string(result)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
