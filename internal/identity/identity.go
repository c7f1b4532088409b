// Package identity canonicalizes inbound contact identifiers so that every
// lookup and mutation uses one stable form of a phone number.
package identity

import "strings"

const prefix = "whatsapp:"

// Normalize converts any inbound phone representation into the canonical
// "whatsapp:+<countrycode><digits>" form. Accepted inputs include
// "919876543210", "+919876543210", "whatsapp:+919876543210" and numbers with
// spaces or dashes.
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	p := strings.TrimSpace(raw)

	if strings.HasPrefix(p, prefix) {
		return p
	}

	p = strings.ReplaceAll(p, " ", "")
	p = strings.ReplaceAll(p, "-", "")

	var digits string
	switch {
	case strings.HasPrefix(p, "+"):
		digits = p[1:]
	case strings.HasPrefix(p, "00") && isDigits(p[2:]):
		digits = p[2:]
	case isDigits(p):
		digits = p
	default:
		digits = keepDigits(p)
	}
	if digits == "" {
		return ""
	}

	return prefix + "+" + digits
}

// Digits strips the canonical form back down to the bare digit string the
// payment provider reports as "contact".
func Digits(canonical string) string {
	p := strings.TrimPrefix(canonical, prefix)
	return keepDigits(p)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
