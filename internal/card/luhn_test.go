package card_test

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"cardfraud/inference-api/internal/card"
	"cardfraud/inference-api/internal/domain"
)

// referenceLuhn sums the odd positions from the right as-is and the even
// positions as the digit sum of their double.
func referenceLuhn(s string) bool {
	digits := make([]int, len(s))
	for i := range s {
		digits[i] = int(s[i] - '0')
	}
	total := 0
	pos := 0
	for i := len(digits) - 1; i >= 0; i-- {
		if pos%2 == 0 {
			total += digits[i]
		} else {
			doubled := digits[i] * 2
			total += doubled/10 + doubled%10
		}
		pos++
	}
	return total%10 == 0
}

// ─── Known numbers ────────────────────────────────────────────────────────────

func TestValidate_KnownNumbers(t *testing.T) {
	cases := []struct {
		name   string
		number string
		want   bool
	}{
		{"visa valid", "4532015112830366", true},
		{"visa wrong check digit", "4532015112830367", false},
		{"spaced visa", "4532 0151 1283 0366", true},
		{"amex 15 digits", "378282246310005", true},
		{"visa 13 digits", "4222222222222", true},
		{"discover", "6011111111111117", true},
		{"mastercard", "5555555555554444", true},
		{"19 digits bad checksum", "4532015112830366000", false},
		{"empty", "", false},
		{"spaces only", "      ", false},
		{"all zeros", "0000000000000000", false},
		{"too short", "123", false},
		{"twenty digits", "45320151128303660000", false},
		{"dashes", "4532-0151-1283-0366", false},
		{"letters", "4532O15112830366", false},
		{"unicode digit", "453201511283036٦", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := card.Validate(tc.number); got != tc.want {
				t.Errorf("Validate(%q) = %v, want %v", tc.number, got, tc.want)
			}
		})
	}
}

func TestValidate_SpacedMatchesUnspaced(t *testing.T) {
	numbers := []string{"4532015112830366", "4532015112830367", "378282246310005"}
	for _, n := range numbers {
		spaced := n[:4] + " " + n[4:8] + "  " + n[8:] + " "
		if card.Validate(spaced) != card.Validate(n) {
			t.Errorf("spaced %q and unspaced %q disagree", spaced, n)
		}
	}
}

// ─── Properties ───────────────────────────────────────────────────────────────

func TestValidate_MatchesReferenceForDigitStrings(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		n := domain.MinCardDigits + rng.Intn(domain.MaxCardDigits-domain.MinCardDigits+1)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteByte(byte('0' + rng.Intn(10)))
		}
		s := b.String()
		if strings.Trim(s, "0") == "" {
			continue
		}
		if got, want := card.Validate(s), referenceLuhn(s); got != want {
			t.Fatalf("Validate(%q) = %v, reference = %v", s, got, want)
		}
	}
}

func TestValidate_RejectsOutOfRangeLengths(t *testing.T) {
	for n := 0; n <= 25; n++ {
		if n >= domain.MinCardDigits && n <= domain.MaxCardDigits {
			continue
		}
		s := strings.Repeat("4", n)
		if card.Validate(s) {
			t.Errorf("length %d should be invalid", n)
		}
	}
}

func TestValidate_RejectsAnyNonDigit(t *testing.T) {
	base := "4532015112830366"
	for _, bad := range []string{"a", "-", ".", "/", "\t", "+"} {
		for pos := 0; pos <= len(base); pos++ {
			s := base[:pos] + bad + base[pos:]
			if card.Validate(s) {
				t.Errorf("Validate(%q) should be false", s)
			}
		}
	}
}

// ─── CheckFormat ──────────────────────────────────────────────────────────────

func TestCheckFormat_WrapsMalformedInput(t *testing.T) {
	for _, s := range []string{"123", "", "4532-0151-1283-0366", "45320151128303660000"} {
		err := card.CheckFormat(s)
		if !errors.Is(err, domain.ErrMalformedInput) {
			t.Errorf("CheckFormat(%q) = %v, want ErrMalformedInput", s, err)
		}
	}
}

func TestCheckFormat_AcceptsLuhnFailures(t *testing.T) {
	// The pre-check is structural only.
	if err := card.CheckFormat("4532015112830367"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ─── Digits / Mask ────────────────────────────────────────────────────────────

func TestDigits_DropsNonDigits(t *testing.T) {
	got := card.Digits("45-3a 2")
	want := []int{4, 5, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"4532015112830366":    "453201******0366",
		"4532 0151 1283 0366": "453201******0366",
		"378282246310005":     "378282*****0005",
		"123":                 "***",
		"":                    "",
	}
	for in, want := range cases {
		if got := card.Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}
