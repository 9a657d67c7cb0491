package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/auth"
	"github.com/WailSalutem-Health-Care/clinic-service/internal/config"
)

// CreateTestVerifier creates a verifier that trusts a freshly generated key.
// It returns the verifier and the private key to sign test tokens.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	keys := auth.NewStaticJWKS(map[string]*rsa.PublicKey{TestKeyID: publicKey})

	return auth.NewVerifier(config.Auth{Issuer: TestIssuer}, keys), privateKey
}
