// Package card validates and masks payment card numbers.
//
// Validation has two layers:
//   - a structural pre-check (digits only after spaces are stripped, 13-19 long)
//   - the Luhn checksum
//
// A number that fails the pre-check is malformed and must never reach the
// feature encoder. A number that passes the pre-check but fails Luhn is still
// scored; its checksum result is reported as a separate signal.
package card

import (
	"fmt"
	"strings"

	"cardfraud/inference-api/internal/domain"
)

// Validate reports whether cardNumber is a well-formed card number with a
// correct Luhn check digit. Spaces are ignored. It never panics.
//
//	Validate("4532015112830366")    => true
//	Validate("4532 0151 1283 0366") => true
//	Validate("4532015112830367")    => false
func Validate(cardNumber string) bool {
	cleaned, err := normalize(cardNumber)
	if err != nil {
		return false
	}
	return luhn(cleaned)
}

// CheckFormat runs only the structural pre-check and returns an error
// wrapping domain.ErrMalformedInput when it fails.
func CheckFormat(cardNumber string) error {
	_, err := normalize(cardNumber)
	return err
}

// StripSpaces removes every ASCII space from s.
func StripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func normalize(cardNumber string) (string, error) {
	cleaned := StripSpaces(cardNumber)

	n := len(cleaned)
	if n < domain.MinCardDigits || n > domain.MaxCardDigits {
		return "", fmt.Errorf("%w: card number must have %d-%d digits, got %d",
			domain.ErrMalformedInput, domain.MinCardDigits, domain.MaxCardDigits, n)
	}
	for i := 0; i < n; i++ {
		if cleaned[i] < '0' || cleaned[i] > '9' {
			return "", fmt.Errorf("%w: card number must contain only digits and spaces", domain.ErrMalformedInput)
		}
	}
	return cleaned, nil
}

// luhn expects a digit-only string.
func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	// The sum is zero only for an all-zero number, which no issuer assigns.
	return sum != 0 && sum%10 == 0
}

// Digits extracts every ASCII decimal digit of s, in order.
func Digits(s string) []int {
	out := make([]int, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			out = append(out, int(c-'0'))
		}
	}
	return out
}

// Mask returns a log-safe form of a card number: the first 6 and last 4
// digits with everything in between replaced by '*'. Non-digits are dropped
// first. Inputs with 10 or fewer digits are fully masked.
//
//	Mask("4532015112830366") => "453201******0366"
func Mask(cardNumber string) string {
	var digits strings.Builder
	for i := 0; i < len(cardNumber); i++ {
		if c := cardNumber[i]; c >= '0' && c <= '9' {
			digits.WriteByte(c)
		}
	}
	d := digits.String()
	if len(d) <= 10 {
		return strings.Repeat("*", len(d))
	}
	return d[:6] + strings.Repeat("*", len(d)-10) + d[len(d)-4:]
}
