package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// X-Signature carries "t=<unix seconds>,v1=<hex hmac>". The MAC covers "<t>.<body>".

// SignHMAC returns the X-Signature header value for body at time ts.
func SignHMAC(secret string, body []byte, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + hex.EncodeToString(mac(secret, t, body))
}

// VerifyHMAC checks a header produced by SignHMAC. A non-zero tolerance
// rejects signatures older or newer than now by more than that.
func VerifyHMAC(secret string, body []byte, header string, now time.Time, tolerance time.Duration) bool {
	var t, v1 string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			t = v
		case "v1":
			v1 = v
		}
	}
	sec, err := strconv.ParseInt(t, 10, 64)
	if err != nil || v1 == "" {
		return false
	}
	if tolerance > 0 {
		if d := now.Sub(time.Unix(sec, 0)); d > tolerance || d < -tolerance {
			return false
		}
	}
	provided, err := hex.DecodeString(v1)
	if err != nil {
		return false
	}
	return hmac.Equal(mac(secret, t, body), provided)
}

func mac(secret, ts string, body []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(ts))
	m.Write([]byte{'.'})
	m.Write(body)
	return m.Sum(nil)
}
