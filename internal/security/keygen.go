// file: internal/security/keygen.go

package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"
)

// KeyMaterial holds the paths of generated key files.
type KeyMaterial struct {
	PrivateKeyPath  string
	CertificatePath string
}

// GenerateKeyMaterial creates a fresh ECDSA P-384 signing key (PKCS#8 PEM)
// and a self-signed certificate suitable for uploading to the bureau's
// developer portal. The certificate is for sandbox use; production
// deployments should use a CA-issued certificate.
func GenerateKeyMaterial(dir string) (*KeyMaterial, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create security directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA P-384 key: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	keyPath := filepath.Join(dir, "pri_key.pem")
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	certPEM, err := selfSignedCertificate(key)
	if err != nil {
		return nil, err
	}

	certPath := filepath.Join(dir, "certificate.pem")
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write certificate: %w", err)
	}

	return &KeyMaterial{PrivateKeyPath: keyPath, CertificatePath: certPath}, nil
}

// selfSignedCertificate builds a one-year self-signed X.509 certificate for
// the key, signed with SHA-256.
func selfSignedCertificate(key *ecdsa.PrivateKey) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	subject := pkix.Name{
		Country:      []string{"MX"},
		Province:     []string{"CDMX"},
		Locality:     []string{"Mexico"},
		Organization: []string{"credit-agent"},
		CommonName:   "credit-agent",
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		Issuer:                subject,
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		SignatureAlgorithm:    x509.ECDSAWithSHA256,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}
