package middleware

import (
	"crypto/hmac"
	"net/http"
)

const apiKeyHeader = "X-Api-Key"

// APIKeyMiddleware проверяет ключ инспекционного API в заголовке запроса.
type APIKeyMiddleware struct {
	key []byte
}

// NewAPIKeyMiddleware создаёт middleware с указанным ключом.
// Пустой ключ отключает проверку: API остаётся открытым.
func NewAPIKeyMiddleware(key string) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: []byte(key)}
}

// Middleware сравнивает ключ из заголовка с настроенным ключом.
func (a *APIKeyMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.key) > 0 && !hmac.Equal([]byte(r.Header.Get(apiKeyHeader)), a.key) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
