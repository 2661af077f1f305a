package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSignBody(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"text":"Sản phẩm rất tốt"}`)

	sig := SignBody(secret, body)

	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature missing prefix: %s", sig)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if sig != want {
		t.Errorf("signature = %s, want %s", sig, want)
	}

	// Lowercase hex only
	hexPart := strings.TrimPrefix(sig, "sha256=")
	if hexPart != strings.ToLower(hexPart) {
		t.Errorf("signature hex is not lowercase: %s", hexPart)
	}
	if len(hexPart) != 64 {
		t.Errorf("signature hex length = %d, want 64", len(hexPart))
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"text":"xin chào"}`)
	sig := SignBody(secret, body)

	if !VerifySignature(secret, body, sig) {
		t.Fatal("valid signature rejected")
	}

	tests := []struct {
		name   string
		body   []byte
		header string
	}{
		{"empty header", body, ""},
		{"missing prefix", body, strings.TrimPrefix(sig, "sha256=")},
		{"wrong prefix", body, "sha1=" + strings.TrimPrefix(sig, "sha256=")},
		{"truncated", body, sig[:len(sig)-2]},
		{"extra byte", body, sig + "0"},
		{"wrong secret", body, SignBody("whsec_other", body)},
		{"mutated body", []byte(`{"text":"xin chao"}`), sig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(secret, tt.body, tt.header) {
				t.Errorf("invalid signature accepted")
			}
		})
	}

	// Every single-byte mutation of the hex digest must fail.
	for i := len("sha256="); i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		if VerifySignature(secret, body, string(mutated)) {
			t.Fatalf("mutated signature accepted at byte %d", i)
		}
	}
}

func TestCredentialShapes(t *testing.T) {
	key, err := NewAPIKey()
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	if !strings.HasPrefix(key, "sk_live_") {
		t.Errorf("api key missing prefix: %s", key)
	}

	secret, err := NewHMACSecret()
	if err != nil {
		t.Fatalf("NewHMACSecret: %v", err)
	}
	if !strings.HasPrefix(secret, "whsec_") {
		t.Errorf("hmac secret missing prefix: %s", secret)
	}
	// 32 random bytes => 43 chars of unpadded base64url
	if got := len(strings.TrimPrefix(secret, "whsec_")); got < 43 {
		t.Errorf("hmac secret entropy too small: %d chars", got)
	}

	// Uniqueness sanity
	key2, _ := NewAPIKey()
	if key == key2 {
		t.Error("two generated api keys are identical")
	}
	if NewAppID() == NewAppID() {
		t.Error("two generated app ids are identical")
	}
}
