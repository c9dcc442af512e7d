package notify

import (
	"errors"
	"strings"
)

// ErrUnparseablePhone indicates a phone number that cannot be normalized
var ErrUnparseablePhone = errors.New("notify: unparseable phone number")

// NormalizePhone converts a raw storefront phone number into E.164-ish form
// for contact lookup. Local numbers with a leading zero get the configured
// country prefix; numbers already carrying a plus are kept as-is. Separators
// and whitespace are stripped first.
func NormalizePhone(raw, defaultPrefix string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", ErrUnparseablePhone
	}

	var number string
	switch {
	case strings.HasPrefix(cleaned, "+"):
		number = cleaned
	case strings.HasPrefix(cleaned, "00"):
		number = "+" + cleaned[2:]
	case strings.HasPrefix(cleaned, "0"):
		number = defaultPrefix + cleaned[1:]
	default:
		number = defaultPrefix + cleaned
	}

	digits := strings.TrimPrefix(number, "+")
	if len(digits) < 9 || len(digits) > 15 {
		return "", ErrUnparseablePhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrUnparseablePhone
		}
	}
	return number, nil
}
