package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionMiddleware_WithValidCookie(t *testing.T) {
	m := NewSessionMiddleware("test-secret")
	const sessionID = "0b6f1f8e-3a4c-4a52-9a39-5f1f4a8d2c11"

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetSessionIDFromContext(r.Context())
		if !ok {
			t.Fatalf("session id not in context")
		}
		if id != sessionID {
			t.Fatalf("session id from context = %s, want %s", id, sessionID)
		}
	})

	w := httptest.NewRecorder()
	m.SetSessionCookie(w, sessionID)
	resCookies := w.Result().Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetSessionCookie")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	r.AddCookie(resCookies[0])

	rec := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(rec, r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("valid session must not be reissued")
	}
}

func TestSessionMiddleware_IssuesNewSession(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "bad signature", cookie: &http.Cookie{Name: sessionCookieName, Value: "0b6f1f8e-3a4c-4a52-9a39-5f1f4a8d2c11.deadbeef"}},
		{name: "garbage", cookie: &http.Cookie{Name: sessionCookieName, Value: "garbage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSessionMiddleware("test-secret")

			var got string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetSessionIDFromContext(r.Context())
			})

			r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			m.Middleware(next).ServeHTTP(w, r)

			if got == "" {
				t.Fatalf("session id not issued")
			}
			cookies := w.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Name != sessionCookieName {
				t.Fatalf("expected session cookie, got %v", cookies)
			}
			if id, ok := m.parseCookie(cookies[0].Value); !ok || id != got {
				t.Fatalf("issued cookie does not carry session %s", got)
			}
		})
	}
}

func TestSessionMiddleware_ForeignSecret(t *testing.T) {
	issuer := NewSessionMiddleware("one")
	verifier := NewSessionMiddleware("two")

	w := httptest.NewRecorder()
	issuer.SetSessionCookie(w, "0b6f1f8e-3a4c-4a52-9a39-5f1f4a8d2c11")

	if _, ok := verifier.parseCookie(w.Result().Cookies()[0].Value); ok {
		t.Fatalf("cookie signed with another secret must be rejected")
	}
}
