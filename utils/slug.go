package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var polishRunes = map[rune]rune{
	'ą': 'a', 'ć': 'c', 'ę': 'e', 'ł': 'l', 'ń': 'n',
	'ó': 'o', 'ś': 's', 'ź': 'z', 'ż': 'z',
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases, transliterates Polish diacritics and collapses every
// other run of characters into a single dash.
func Slugify(text string) string {
	lowered := strings.ToLower(text)
	var b strings.Builder
	for _, r := range lowered {
		if repl, ok := polishRunes[r]; ok {
			b.WriteRune(repl)
			continue
		}
		b.WriteRune(r)
	}
	s := nonSlugChars.ReplaceAllString(b.String(), "-")
	return strings.Trim(s, "-")
}

// RandomSuffix returns n hex characters from crypto/rand.
func RandomSuffix(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read on a sane platform does not fail; keep slugs moving anyway
		return strings.Repeat("0", n)
	}
	return hex.EncodeToString(buf)[:n]
}

// MakeVehicleSlug builds the public URL slug for a vehicle:
// nowe-bmw-5-series-2024-a1b2c3 / uzywane-audi-a6-2021-d4e5f6.
// The random suffix keeps slugs unique; the store's unique index is the
// final arbiter and collisions surface as a retryable conflict.
func MakeVehicleSlug(vehicleType string, make string, model string, year int, suffix string) string {
	prefix := "uzywane"
	if vehicleType == "NEW" {
		prefix = "nowe"
	}
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("%s-%s-%s-%d-%s", prefix, Slugify(make), Slugify(model), year, suffix)
}
