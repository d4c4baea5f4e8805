package utils

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BMW X3", "bmw-x3"},
		{"Škoda Octavia", "koda-octavia"},
		{"Citroën C4", "citro-n-c4"},
		{"Mercedes-Benz  GLC 300 4MATIC", "mercedes-benz-glc-300-4matic"},
		{"żółta łódź", "zolta-lodz"},
		{"  -- trailing -- ", "trailing"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMakeVehicleSlug(t *testing.T) {
	got := MakeVehicleSlug("NEW", "Toyota", "Corolla", 2025, "a1b2c3")
	if got != "nowe-toyota-corolla-2025-a1b2c3" {
		t.Errorf("unexpected slug %q", got)
	}

	got = MakeVehicleSlug("USED", "Škoda", "Fabia", 2018, "deadbeef00")
	if got != "uzywane-koda-fabia-2018-beef00" {
		t.Errorf("suffix should keep its last 6 chars, got %q", got)
	}
}

func TestRandomSuffix(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := RandomSuffix(6)
		if len(s) != 6 {
			t.Fatalf("suffix length %d, want 6", len(s))
		}
		if strings.ToLower(s) != s {
			t.Fatalf("suffix %q should be lowercase hex", s)
		}
		seen[s] = true
	}
	if len(seen) < 90 {
		t.Errorf("suffixes look far from random: %d unique out of 100", len(seen))
	}
}
