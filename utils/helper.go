package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"
	"strings"
)

// HashIp returns a short salted hash of a client IP. Raw addresses are never
// stored; stats and leads only keep this fingerprint.
func HashIp(ip string) string {
	sum := sha256.Sum256([]byte(ip + os.Getenv("API_SECRET")))
	return hex.EncodeToString(sum[:])[:16]
}

func ClientIp(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	if host == "" {
		return "unknown"
	}
	return host
}

func TruncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
