package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// MAC computes HMAC-SHA256(key, data).
func MAC(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// VerifyMAC checks mac against HMAC-SHA256(key, data) in constant time.
func VerifyMAC(key, data, mac []byte) bool {
	return hmac.Equal(MAC(key, data), mac)
}
