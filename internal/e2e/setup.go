//go:build integration

package e2e

import (
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/auth"
	httpserver "github.com/WailSalutem-Health-Care/clinic-service/internal/http"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/testutil"
)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest creates a complete test environment for E2E testing:
// - Real PostgreSQL database with migrations applied
// - Real HTTP server with all routes and the auth guard enabled
// - In-memory RabbitMQ publisher
// - Test JWT verifier and signing key
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	router := httpserver.SetupRouter(httpserver.Dependencies{
		DB:          db,
		Publisher:   mockPublisher,
		Verifier:    verifier,
		Permissions: perms,
		Logger:      zap.NewNop(),
	})

	return &TestServer{
		Server:        httptest.NewServer(router),
		DB:            db,
		MockPublisher: mockPublisher,
		PrivateKey:    privateKey,
	}
}

// Cleanup closes the server and empties the database. The container itself
// is terminated by the cleanup registered in SetupTestDB.
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()
	testutil.CleanupTestDB(t, ts.DB)
}

// GenerateAdminToken generates an ADMIN token for this test server
func (ts *TestServer) GenerateAdminToken(t *testing.T) string {
	t.Helper()
	return testutil.GenerateAdminToken(t, ts.PrivateKey)
}

// GenerateNurseToken generates a NURSE token for this test server
func (ts *TestServer) GenerateNurseToken(t *testing.T) string {
	t.Helper()
	return testutil.GenerateNurseToken(t, ts.PrivateKey)
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}
