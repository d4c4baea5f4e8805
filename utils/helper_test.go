package utils

import (
	"net/http/httptest"
	"testing"
)

func TestHashIp(t *testing.T) {
	a := HashIp("10.0.0.1")
	b := HashIp("10.0.0.2")
	if len(a) != 16 {
		t.Errorf("hash length %d, want 16", len(a))
	}
	if a == b {
		t.Error("different addresses should hash differently")
	}
	if a != HashIp("10.0.0.1") {
		t.Error("hash must be stable for the same address")
	}
	if a == "10.0.0.1" || b == "10.0.0.2" {
		t.Error("raw address must never pass through")
	}
}

func TestClientIp(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:54321"
	if got := ClientIp(r); got != "192.0.2.10" {
		t.Errorf("remote addr fallback: got %q", got)
	}

	r.Header.Set("X-Real-Ip", "198.51.100.7")
	if got := ClientIp(r); got != "198.51.100.7" {
		t.Errorf("X-Real-Ip: got %q", got)
	}

	// Forwarded-for wins and only the first hop counts.
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := ClientIp(r); got != "203.0.113.5" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := SplitAndTrim(" a, b ,, c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("unexpected result %v", got)
	}
	if SplitAndTrim("  ") != nil {
		t.Error("blank input should return nil")
	}
}
