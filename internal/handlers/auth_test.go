package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := issueToken(42, secret, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	subject, err := parseTokenSubject(token, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if subject != "42" {
		t.Fatalf("expected subject 42, got %q", subject)
	}

	if _, err := parseTokenSubject(token, []byte("wrong-secret")); err == nil {
		t.Fatalf("expected verification failure with the wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	secret := []byte("test-secret")
	token, err := issueToken(42, secret, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := parseTokenSubject(token, secret); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestRequireAuth(t *testing.T) {
	secret := "test-secret"
	middleware := RequireAuth(secret)

	var gotSubject int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := userIDFromContext(r.Context())
		if err != nil {
			t.Fatalf("subject missing from context: %v", err)
		}
		gotSubject = id
		w.WriteHeader(http.StatusOK)
	})

	token, err := issueToken(7, []byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	middleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotSubject != 7 {
		t.Fatalf("expected subject 7, got %d", gotSubject)
	}
}

func TestRequireAuthRejections(t *testing.T) {
	middleware := RequireAuth("test-secret")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without valid auth")
	})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		middleware(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
	}
}
