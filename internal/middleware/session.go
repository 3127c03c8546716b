package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"spool/internal/models"
)

const sessionCookie = "spool_session"

// SessionAuth проверяет аутентифицированную сессию: cookie spool_session
// либо Authorization: Bearer <token>. На 401 отдаём problem+json с полем
// login — клиент обязан уйти на переаутентификацию, а не трактовать это
// как ошибку данных.
func SessionAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			if sessionOK(r, token) {
				next.ServeHTTP(w, r)
				return
			}
			models.WriteProblem(w, http.StatusUnauthorized,
				"Unauthorized", "session required", map[string]any{
					"login": "/login",
				})
		})
	}
}

func sessionOK(r *http.Request, token string) bool {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if subtle.ConstantTimeCompare([]byte(c.Value), []byte(token)) == 1 {
			return true
		}
	}
	const p = "Bearer "
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, p) {
		return subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, p)), []byte(token)) == 1
	}
	return false
}
