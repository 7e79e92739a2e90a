package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/service/identity"
)

func protected(t *testing.T) (http.Handler, *identity.Verifier, *string) {
	t.Helper()
	verifier, err := identity.NewVerifier("secret", "HS256")
	if err != nil {
		t.Fatalf("NewVerifier err: %v", err)
	}

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		if !ok {
			t.Fatal("identity missing from context")
		}
		seen = id.UserID
		w.WriteHeader(http.StatusNoContent)
	})
	return Auth(verifier, zerolog.Nop())(next), verifier, &seen
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	h, verifier, seen := protected(t)
	token, err := verifier.Sign("42")
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if *seen != "42" {
		t.Fatalf("unexpected user id %q", *seen)
	}
}

func TestAuthRejects(t *testing.T) {
	h, _, seen := protected(t)

	for name, header := range map[string]string{
		"missing": "",
		"basic":   "Basic dXNlcjpwYXNz",
		"empty":   "Bearer ",
		"forged":  "Bearer eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.invalid",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.Code)
			}
		})
	}
	if *seen != "" {
		t.Fatalf("handler ran for rejected request as %q", *seen)
	}
}
