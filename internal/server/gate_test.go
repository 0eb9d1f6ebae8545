package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsLoginPath(t *testing.T) {
	tests := map[string]bool{
		"/login":        true,
		"/login/auth":   true,
		"/login/":       true,
		"/loginx":       true,
		"/books/shelf":  false,
		"/":             false,
		"/static/login": false,
	}
	for path, want := range tests {
		if got := isLoginPath(path); got != want {
			t.Fatalf("isLoginPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGateAttachesSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	s, err := New(Config{App: env.app})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	token, err := env.app.Login("root", "123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var seenSubject string
	var seenAuth bool
	handler := s.gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatalf("session missing from context")
		}
		seenSubject, seenAuth = sess.Subject, sess.Authenticated
	}))

	req := httptest.NewRequest(http.MethodGet, "/books/shelf", nil)
	req.AddCookie(&http.Cookie{Name: "shelf_session", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !seenAuth || seenSubject != "root" {
		t.Fatalf("code=%d auth=%v subject=%q", rec.Code, seenAuth, seenSubject)
	}

	seenAuth = true
	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "shelf_session", Value: "forged"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seenAuth {
		t.Fatalf("forged cookie on login path: code=%d auth=%v", rec.Code, seenAuth)
	}

	req = httptest.NewRequest(http.MethodGet, "/books/shelf", nil)
	req.AddCookie(&http.Cookie{Name: "shelf_session", Value: "forged"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("forged cookie: code=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
}
