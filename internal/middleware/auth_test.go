package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/mutualaid/internal/auth"
)

var testSecret = []byte("test-secret")

func identityHandler(t *testing.T, called *auth.AuthContext) http.Handler {
	return RequireIdentity(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("auth context missing")
		}
		*called = ac
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireIdentityNoToken(t *testing.T) {
	var got auth.AuthContext
	handler := identityHandler(t, &got)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRequireIdentityValidToken(t *testing.T) {
	var got auth.AuthContext
	handler := identityHandler(t, &got)

	tok, err := IssueToken(testSecret, "user-1", "community-1", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.UserID != "user-1" || got.CommunityID != "community-1" {
		t.Errorf("auth = %+v, want user-1/community-1", got)
	}
}

func TestRequireIdentityQueryToken(t *testing.T) {
	var got auth.AuthContext
	handler := identityHandler(t, &got)

	tok, _ := IssueToken(testSecret, "user-2", "community-1", time.Hour, time.Now())
	req := httptest.NewRequest("GET", "/ws?token="+tok, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.UserID != "user-2" {
		t.Errorf("user = %q, want %q", got.UserID, "user-2")
	}
}

func TestRequireIdentityRejects(t *testing.T) {
	now := time.Now()
	expired, _ := IssueToken(testSecret, "u", "c", time.Minute, now.Add(-time.Hour))
	wrongKey, _ := IssueToken([]byte("other"), "u", "c", time.Hour, now)
	noCommunity, _ := IssueToken(testSecret, "u", "", time.Hour, now)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		CommunityID:      "c",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	}).SignedString(testSecret)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		CommunityID:      "c",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
	}{
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"no community", "Bearer " + noCommunity},
		{"no expiry", "Bearer " + noExpiry},
		{"alg none", "Bearer " + none},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage", "Bearer not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireIdentity(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("should not reach handler")
			}))
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestParseTokenClock(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tok, _ := IssueToken(testSecret, "u", "c", time.Hour, issued)

	if _, err := ParseToken(testSecret, tok, func() time.Time { return issued.Add(30 * time.Minute) }); err != nil {
		t.Errorf("token within lifetime: %v", err)
	}
	if _, err := ParseToken(testSecret, tok, func() time.Time { return issued.Add(2 * time.Hour) }); err == nil {
		t.Error("expected expired token to fail")
	}
}
