package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Ключ контекста, под которым лежит идентификатор владельца
const ownerContextKey = "owner_id"

var errUnexpectedSigning = errors.New("unexpected signing method")

// Auth middleware проверки bearer-токенов внешнего auth-провайдера.
// Токен подписан HS256; claim sub — непрозрачный идентификатор
// владельца, которому мы доверяем как owner identity.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Require возвращает middleware, требующий валидный bearer-токен.
// Без токена — 401, с невалидным — 401; sub кладётся в контекст.
func (a *Auth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		ownerID, err := a.verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

// Optional возвращает middleware, принимающий запросы и без токена:
// часть ручек берёт владельца из тела запроса. Предъявленный, но
// невалидный токен всё равно отклоняется.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		ownerID, err := a.verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

// verify валидирует подпись и достаёт subject
func (a *Auth) verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", jwt.ErrTokenUnverifiable
	}
	if claims.Subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}

	return claims.Subject, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// OwnerFromContext извлекает идентификатор владельца из контекста
func OwnerFromContext(c *gin.Context) (string, bool) {
	owner, exists := c.Get(ownerContextKey)
	if !exists {
		return "", false
	}
	id, ok := owner.(string)
	return id, ok && id != ""
}
