// file: internal/security/context.go

package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"credit-agent/config"
	"credit-agent/internal/logger"
)

// Context owns the process-wide ECDSA key material: the signing key used for
// every outbound request and the optional counterparty key used to verify
// response signatures. It is loaded once at startup and immutable afterwards,
// so it may be shared across concurrent calls without locking.
type Context struct {
	signingKey      *ecdsa.PrivateKey
	counterpartyKey *ecdsa.PublicKey

	counterpartyAvailable bool
	logger                *logger.Logger
}

// NewContext loads the signing key and the counterparty certificate.
//
// The signing key is the authentication root: a missing or unparseable file
// is a hard error. The counterparty certificate is optional — when absent,
// the context enters unverified (demo) mode in which VerifyResponse always
// reports success and CounterpartyKeyAvailable returns false, unless
// RequireCounterpartyKey makes the absence fatal.
func NewContext(cfg *config.SecurityConfig, log *logger.Logger) (*Context, error) {
	ctx := &Context{logger: log}

	signingKey, err := loadSigningKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key %s: %w", cfg.SigningKeyFile, err)
	}
	ctx.signingKey = signingKey

	counterpartyKey, err := loadCounterpartyKey(cfg.CounterpartyCertFile)
	if err != nil {
		if cfg.RequireCounterpartyKey {
			return nil, fmt.Errorf("failed to load counterparty certificate %s: %w", cfg.CounterpartyCertFile, err)
		}
		log.Warn("counterparty certificate unavailable, response signatures will not be verified",
			"certFile", cfg.CounterpartyCertFile,
			"error", err)
		ctx.counterpartyAvailable = false
	} else {
		ctx.counterpartyKey = counterpartyKey
		ctx.counterpartyAvailable = true
		log.Info("counterparty certificate loaded", "certFile", cfg.CounterpartyCertFile)
	}

	log.Info("security context initialized",
		"signingKeyFile", cfg.SigningKeyFile,
		"counterpartyKeyAvailable", ctx.counterpartyAvailable)

	return ctx, nil
}

// SignPayload canonicalizes the payload and signs the canonical bytes.
// Both are returned so the caller can transmit exactly what was signed.
func (c *Context) SignPayload(payload interface{}) (canonical []byte, signature string, err error) {
	canonical, err = Canonicalize(payload)
	if err != nil {
		return nil, "", err
	}
	signature, err = Sign(c.signingKey, canonical)
	if err != nil {
		return nil, "", err
	}
	return canonical, signature, nil
}

// VerifyResponse checks the signature against the exact response body bytes.
// In unverified mode it always returns true; callers that need to distinguish
// a genuine verification from a rubber stamp must consult
// CounterpartyKeyAvailable.
func (c *Context) VerifyResponse(body []byte, signature string) bool {
	if !c.counterpartyAvailable {
		c.logger.Debug("unverified mode: skipping response signature check")
		return true
	}
	return Verify(c.counterpartyKey, body, signature)
}

// CounterpartyKeyAvailable reports whether response signatures are genuinely
// verified.
func (c *Context) CounterpartyKeyAvailable() bool {
	return c.counterpartyAvailable
}

// loadSigningKey reads a PEM-encoded ECDSA P-384 private key (PKCS#8 or SEC1).
func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse EC private key: %w", err)
		}
	default:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#8 private key: %w", err)
		}
		var ok bool
		key, ok = parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an ECDSA private key")
		}
	}

	if key.Curve != elliptic.P384() {
		return nil, fmt.Errorf("signing key curve is %s, want P-384", key.Curve.Params().Name)
	}
	return key, nil
}

// loadCounterpartyKey reads the counterparty key material: either an X.509
// certificate or a bare PKIX public key, both PEM-encoded.
func loadCounterpartyKey(path string) (*ecdsa.PublicKey, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	var pub interface{}
	if block.Type == "CERTIFICATE" {
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		pub = cert.PublicKey
	} else {
		pub, err = x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
	}

	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an ECDSA public key")
	}
	return ecPub, nil
}
