// Package phone normalizes phone numbers to E.164.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalidNumber indicates the input cannot be normalized to E.164.
var ErrInvalidNumber = errors.New("invalid phone number")

const (
	minDigits = 8
	maxDigits = 15
)

// NormalizeE164 strips formatting characters from raw and returns the number
// in E.164 form (+ followed by 8 to 15 digits). Numbers without a leading +
// are rejected rather than guessed at: the country code is not recoverable
// from a national-format number.
func NormalizeE164(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}

	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// formatting noise
		default:
			return "", ErrInvalidNumber
		}
	}

	s := b.String()
	if !strings.HasPrefix(s, "+") {
		return "", ErrInvalidNumber
	}

	digits := len(s) - 1
	if digits < minDigits || digits > maxDigits {
		return "", ErrInvalidNumber
	}
	if s[1] == '0' {
		return "", ErrInvalidNumber
	}

	return s, nil
}
