// Package card validates payment card numbers.
package card

import "strings"

// ValidNumber reports whether the card number passes the Luhn checksum.
// Spaces and dashes are ignored; anything else non-numeric fails.
func ValidNumber(number string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)

	if len(cleaned) < 12 || len(cleaned) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(cleaned) - 1; i >= 0; i-- {
		c := cleaned[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
