// Package crypto implements request signing and credential generation.
//
// Request bodies are signed with HMAC-SHA256 over the exact raw bytes.
// The wire format is "sha256=" followed by the lowercase hex digest,
// carried in the X-Hub-Signature-256 header on both inbound submits and
// outbound webhooks.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the HTTP header carrying the body signature.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// SignBody computes the signature header value for a request body.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header value against the raw body.
// The comparison is constant-time; any deviation from the expected format
// (missing prefix, wrong length, byte mismatch) fails verification.
func VerifySignature(secret string, body []byte, header string) bool {
	if len(header) != len(signaturePrefix)+sha256.Size*2 {
		return false
	}
	expected := SignBody(secret, body)
	return hmac.Equal([]byte(expected), []byte(header))
}
