package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// okHandler records whether it ran and what userID the middleware stored.
func okHandler(gotID *string, ran *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*ran = true
		if id, ok := UserIDFromContext(r.Context()); ok {
			*gotID = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.Generate("user-42")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var gotID string
	var ran bool
	handler := RequireAuth(ts)(okHandler(&gotID, &ran))

	req := httptest.NewRequest(http.MethodGet, "/api/snippet/snippets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !ran {
		t.Fatal("handler did not run for a valid bearer token")
	}
	if gotID != "user-42" {
		t.Errorf("userID in context = %q, want %q", gotID, "user-42")
	}
}

func TestRequireAuth_CookieFallback(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate("user-7")

	var gotID string
	var ran bool
	handler := RequireAuth(ts)(okHandler(&gotID, &ran))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !ran || gotID != "user-7" {
		t.Errorf("cookie auth failed: ran=%v userID=%q", ran, gotID)
	}
}

func TestRequireAuth_MissingCredential(t *testing.T) {
	ts := newTestTokenService(t)

	var gotID string
	var ran bool
	handler := RequireAuth(ts)(okHandler(&gotID, &ran))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ran {
		t.Error("handler ran without a credential")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.GenerateWithDuration("user-1", -1)

	var gotID string
	var ran bool
	handler := RequireAuth(ts)(okHandler(&gotID, &ran))

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ran {
		t.Error("handler ran with an expired token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
