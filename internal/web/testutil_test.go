package web

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

// httpBody wraps a string body for httptest.NewRequest.
func httpBody(s string) *strings.Reader {
	return strings.NewReader(s)
}

// jsonContains reports whether body contains want as a raw substring —
// good enough for asserting on a field without decoding the whole
// response shape in every test.
func jsonContains(t *testing.T, body []byte, want string) bool {
	t.Helper()
	return bytes.Contains(body, []byte(want))
}

// hmacHex computes the hex-encoded HMAC-SHA256 digest of body under
// secret, matching verifyWebhookSignature's expected format.
func hmacHex(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}
