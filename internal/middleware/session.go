// Package middleware содержит HTTP middleware витрины: сессии, сжатие, журналирование и метрики.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

const (
	sessionCookieName = "session_id"
	sessionCookieTTL  = 365 * 24 * time.Hour
)

// SessionMiddleware привязывает запрос к сессии по подписанному cookie.
// Запрос без корректного cookie получает новую сессию.
type SessionMiddleware struct {
	secretKey []byte
	newID     func() string
}

// NewSessionMiddleware создаёт новый экземпляр SessionMiddleware с указанным секретным ключом.
func NewSessionMiddleware(secret string) *SessionMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &SessionMiddleware{
		secretKey: key,
		newID:     uuid.NewString,
	}
}

// Middleware извлекает идентификатор сессии из cookie или выдаёт новый и кладёт его в контекст запроса.
func (s *SessionMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if id, ok := s.parseCookie(cookie.Value); ok {
				sessionID = id
			}
		}

		if sessionID == "" {
			sessionID = s.newID()
			s.SetSessionCookie(w, sessionID)
		}

		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
	})
}

// SetSessionCookie устанавливает подписанный cookie сессии.
func (s *SessionMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.sign(sessionID),
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (s *SessionMiddleware) sign(sessionID string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(sessionID))
	return sessionID + "." + hex.EncodeToString(mac.Sum(nil))
}

func (s *SessionMiddleware) parseCookie(value string) (string, bool) {
	id, signature, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}

	_, expected, _ := strings.Cut(s.sign(id), ".")
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}

	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}

	return id, true
}

// GetSessionIDFromContext извлекает идентификатор сессии из контекста запроса.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithSessionID возвращает контекст с идентификатором сессии.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}
