// Package fileurl signs media download links handed to admin dashboards.
// A link carries its expiry and an HMAC over "{fileID}:{expires}", so it can be
// shared without exposing the API key.
package fileurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const mediaPath = "/media/"

// SignURL returns a relative media URL with expiry and signature query parameters.
func SignURL(fileID, secret string, ttl time.Duration) string {
	expires := time.Now().Add(ttl).Unix()
	sig := computeHMAC(fileID, expires, secret)
	return fmt.Sprintf("%s%s?expires=%d&sig=%s", mediaPath, fileID, expires, sig)
}

// Verify checks the signature and rejects expired links.
func Verify(fileID, expires, sig, secret string) bool {
	if secret == "" {
		return false
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > exp {
		return false
	}
	expected := computeHMAC(fileID, exp, secret)
	return hmac.Equal([]byte(sig), []byte(expected))
}

func computeHMAC(fileID string, expires int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s:%d", fileID, expires)))
	return hex.EncodeToString(mac.Sum(nil))
}
