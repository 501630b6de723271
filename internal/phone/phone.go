// Package phone canonicalizes phone numbers into the join key shared by consent
// and delivery records.
package phone

import (
	"errors"
	"strings"
)

var ErrEmpty = errors.New("phone number has no digits")

// Normalize strips every non-digit and returns an E.164-style value.
//
//   - 10 digits: North American number, country code 1 is prepended
//   - 11 digits starting with 1: kept as is
//   - anything else: passed through with a leading '+' (best effort, not validated)
//
// Normalize is idempotent. An input without digits yields "".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case len(digits) == 10:
		return "+1" + digits
	default:
		return "+" + digits
	}
}

// Parse normalizes raw and rejects inputs that carry no digits.
func Parse(raw string) (string, error) {
	p := Normalize(raw)
	if p == "" {
		return "", ErrEmpty
	}
	return p, nil
}
