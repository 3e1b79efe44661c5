// file: internal/security/codec_test.go

package security

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func generateTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	return key
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
		want    string
	}{
		{
			name:    "keys sorted lexicographically",
			payload: map[string]interface{}{"rfc": "XAXX010101000", "curp": "XEXX010101HNEXXXA4"},
			want:    `{"curp":"XEXX010101HNEXXXA4","rfc":"XAXX010101000"}`,
		},
		{
			name: "nested keys sorted at every level",
			payload: map[string]interface{}{
				"firstName": "Juan",
				"address":   map[string]interface{}{"state": "CDMX", "addressLine1": ""},
			},
			want: `{"address":{"addressLine1":"","state":"CDMX"},"firstName":"Juan"}`,
		},
		{
			name: "struct payload collapses to the same form as a map",
			payload: struct {
				RFC  string `json:"rfc"`
				CURP string `json:"curp"`
			}{RFC: "XAXX010101000", CURP: "XEXX010101HNEXXXA4"},
			want: `{"curp":"XEXX010101HNEXXXA4","rfc":"XAXX010101000"}`,
		},
		{
			name:    "numbers keep their literal form",
			payload: map[string]interface{}{"ingresos": 25000.5, "ficoscore": 720},
			want:    `{"ficoscore":720,"ingresos":25000.5}`,
		},
		{
			name:    "no insignificant whitespace",
			payload: map[string]interface{}{"a": []interface{}{1, 2, 3}},
			want:    `{"a":[1,2,3]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.payload)
			if err != nil {
				t.Fatalf("Canonicalize() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanonicalizeOrderIndependent(t *testing.T) {
	// Same logical structure expressed twice; canonical bytes must match.
	a := map[string]interface{}{
		"curp":        "XEXX010101HNEXXXA4",
		"bankAccount": "002180700845152596",
		"bankCode":    "012",
	}
	b := struct {
		BankCode    string `json:"bankCode"`
		CURP        string `json:"curp"`
		BankAccount string `json:"bankAccount"`
	}{BankCode: "012", CURP: "XEXX010101HNEXXXA4", BankAccount: "002180700845152596"}

	ca, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("Canonicalize(a) error = %v", err)
	}
	cb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("Canonicalize(b) error = %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Errorf("canonical forms differ:\n  a: %s\n  b: %s", ca, cb)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	key := generateTestKey(t)
	data := []byte(`{"curp":"XEXX010101HNEXXXA4"}`)

	sig, err := Sign(key, data)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if !Verify(&key.PublicKey, data, sig) {
		t.Error("Verify() = false for a matching key pair")
	}
}

func TestVerifyRejectsMutations(t *testing.T) {
	key := generateTestKey(t)
	data := []byte(`{"curp":"XEXX010101HNEXXXA4"}`)

	sig, err := Sign(key, data)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	t.Run("mutated payload", func(t *testing.T) {
		mutated := append([]byte(nil), data...)
		mutated[0] ^= 0x01
		if Verify(&key.PublicKey, mutated, sig) {
			t.Error("Verify() = true for a single-bit payload mutation")
		}
	})

	t.Run("mutated signature", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			t.Fatalf("failed to decode signature: %v", err)
		}
		raw[len(raw)-1] ^= 0x01
		if Verify(&key.PublicKey, data, base64.StdEncoding.EncodeToString(raw)) {
			t.Error("Verify() = true for a single-bit signature mutation")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other := generateTestKey(t)
		if Verify(&other.PublicKey, data, sig) {
			t.Error("Verify() = true for a different key")
		}
	})

	t.Run("malformed base64", func(t *testing.T) {
		if Verify(&key.PublicKey, data, "not-base64!!!") {
			t.Error("Verify() = true for malformed base64")
		}
	})

	t.Run("empty signature", func(t *testing.T) {
		if Verify(&key.PublicKey, data, "") {
			t.Error("Verify() = true for empty signature")
		}
	})
}
