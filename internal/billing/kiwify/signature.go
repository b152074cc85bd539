package kiwify

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Sign returns the hex HMAC-SHA1 of body keyed by the webhook token.
func Sign(body []byte, token string) string {
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a webhook signature in constant time. An empty token never verifies.
func Verify(body []byte, signature, token string) bool {
	if token == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
