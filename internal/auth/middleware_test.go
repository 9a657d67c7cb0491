package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/config"
)

type recordingMetrics struct {
	failures []string
	checks   []bool
}

func (m *recordingMetrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.failures = append(m.failures, reason)
}

func (m *recordingMetrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.checks = append(m.checks, allowed)
}

func validToken(t *testing.T, key *rsa.PrivateKey, roles ...string) string {
	t.Helper()
	rs := make([]interface{}, len(roles))
	for i, r := range roles {
		rs[i] = r
	}
	return signToken(t, key, jwt.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"realm_access": map[string]interface{}{
			"roles": rs,
		},
	}, "test-key-id")
}

// TestMiddleware_ValidToken tests that a valid token allows the request to proceed
func TestMiddleware_ValidToken(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(config.Auth{Issuer: testIssuer}, newMockJWKS(publicKey))
	tokenString := validToken(t, privateKey, "ADMIN")

	called := false
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		principal, ok := FromContext(r.Context())
		if !ok {
			t.Error("Expected principal in context, got none")
			return
		}
		if principal.UserID != "user-123" {
			t.Errorf("Expected UserID 'user-123', got '%s'", principal.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/pacientes", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("Expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

// TestMiddleware_MissingAuthorizationHeader tests that missing header returns 401
func TestMiddleware_MissingAuthorizationHeader(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(config.Auth{Issuer: testIssuer}, newMockJWKS(publicKey))
	metrics := &recordingMetrics{}

	called := false
	handler := MiddlewareWithMetrics(verifier, metrics, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/pacientes", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if called {
		t.Error("Expected handler NOT to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"missing authorization"`) {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != "missing_authorization" {
		t.Errorf("Expected one missing_authorization failure, got %v", metrics.failures)
	}
}

// TestMiddleware_InvalidAuthorizationHeader tests malformed headers
func TestMiddleware_InvalidAuthorizationHeader(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(config.Auth{Issuer: testIssuer}, newMockJWKS(publicKey))

	testCases := []struct {
		name   string
		header string
	}{
		{"No Bearer prefix", "some-token"},
		{"Wrong prefix", "Basic dXNlcjpwYXNz"},
		{"Only Bearer", "Bearer"},
		{"Empty after Bearer", "Bearer "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/pacientes", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if called {
				t.Error("Expected handler NOT to be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
		})
	}
}

// TestMiddleware_InvalidToken tests that invalid tokens are rejected
func TestMiddleware_InvalidToken(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(config.Auth{Issuer: testIssuer}, newMockJWKS(publicKey))
	metrics := &recordingMetrics{}

	called := false
	handler := MiddlewareWithMetrics(verifier, metrics, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/pacientes", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if called {
		t.Error("Expected handler NOT to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != "invalid_token" {
		t.Errorf("Expected one invalid_token failure, got %v", metrics.failures)
	}
}

// TestRequirePermission tests allow and deny paths
func TestRequirePermission(t *testing.T) {
	perms := Permissions{
		"ADMIN": {"patient:create", "patient:view", "patient:update", "patient:delete"},
		"NURSE": {"patient:view"},
	}

	testCases := []struct {
		name      string
		principal *Principal
		expected  int
	}{
		{"allowed", &Principal{UserID: "u1", Roles: []string{"ADMIN"}}, http.StatusOK},
		{"forbidden", &Principal{UserID: "u2", Roles: []string{"NURSE"}}, http.StatusForbidden},
		{"unauthenticated", nil, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &recordingMetrics{}
			handler := RequirePermissionWithMetrics("patient:delete", perms, metrics, nil)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				}),
			)

			req := httptest.NewRequest(http.MethodDelete, "/pacientes/1", nil)
			if tc.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), tc.principal))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("Expected status %d, got %d", tc.expected, rec.Code)
			}
			if len(metrics.checks) != 1 {
				t.Errorf("Expected one permission check, got %d", len(metrics.checks))
			}
		})
	}
}

// TestGuard tests authentication and permission chained together
func TestGuard(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(config.Auth{Issuer: testIssuer}, newMockJWKS(publicKey))
	perms := Permissions{"NURSE": {"patient:view"}}
	guard := Guard(verifier, perms, nil, nil)

	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	testCases := []struct {
		name       string
		permission string
		token      string
		expected   int
	}{
		{"view allowed", "patient:view", validToken(t, privateKey, "nurse"), http.StatusOK},
		{"delete forbidden", "patient:delete", validToken(t, privateKey, "NURSE"), http.StatusForbidden},
		{"no token", "patient:view", "", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/pacientes", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()

			guard(tc.permission, ok).ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("Expected status %d, got %d", tc.expected, rec.Code)
			}
		})
	}
}

// TestFromContext tests extracting principal from context
func TestFromContext(t *testing.T) {
	t.Run("Principal exists in context", func(t *testing.T) {
		expected := &Principal{
			UserID: "test-user",
			Roles:  []string{"ADMIN"},
		}
		ctx := ContextWithPrincipal(context.Background(), expected)

		principal, ok := FromContext(ctx)

		if !ok {
			t.Error("Expected principal to be found")
		}
		if principal.UserID != expected.UserID {
			t.Errorf("Expected UserID '%s', got '%s'", expected.UserID, principal.UserID)
		}
	})

	t.Run("No principal in context", func(t *testing.T) {
		principal, ok := FromContext(context.Background())

		if ok {
			t.Error("Expected no principal to be found")
		}
		if principal != nil {
			t.Error("Expected nil principal")
		}
	})
}

// TestHasPermission tests the permission checking logic
func TestHasPermission(t *testing.T) {
	perms := Permissions{
		"ADMIN":        {"patient:create", "patient:view", "patient:delete"},
		"RECEPTIONIST": {"patient:create", "patient:view"},
		"NURSE":        {"patient:view"},
	}

	testCases := []struct {
		name       string
		principal  *Principal
		permission string
		expected   bool
	}{
		{"Single role with permission", &Principal{Roles: []string{"ADMIN"}}, "patient:delete", true},
		{"Single role without permission", &Principal{Roles: []string{"NURSE"}}, "patient:create", false},
		{"Multiple roles, permission in first role", &Principal{Roles: []string{"RECEPTIONIST", "NURSE"}}, "patient:create", true},
		{"Multiple roles, permission in second role", &Principal{Roles: []string{"NURSE", "ADMIN"}}, "patient:delete", true},
		{"Lowercase realm role", &Principal{Roles: []string{"nurse"}}, "patient:view", true},
		{"Unknown role", &Principal{Roles: []string{"offline_access"}}, "patient:view", false},
		{"No roles", &Principal{Roles: []string{}}, "patient:view", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := HasPermission(tc.principal, tc.permission, perms)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}
