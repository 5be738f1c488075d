// Package features builds the fixed-width feature vector the classifier
// consumes.
//
// Layout (domain.FeatureWidth = 30 slots):
//
//	0-15   card digits in order, truncated to 16 or right-padded with zeros
//	16     scaled amount
//	17     scaled time, or 0 when the scaler does not model time
//	18-29  zero
//
// The offline pipeline trains on exactly this layout, so Encode must stay
// byte-for-byte compatible with it.
package features

import (
	"cardfraud/inference-api/internal/card"
	"cardfraud/inference-api/internal/domain"
)

// Vector is an ordered feature vector. Values returned by Encode always have
// length domain.FeatureWidth.
type Vector []float64

// Encode maps a raw card number and its scaled numeric features into a
// Vector. It is total: any card string, including an empty or non-numeric
// one, produces a full-width vector.
func Encode(cardNumber string, scaledAmount float64, scaledTime *float64) Vector {
	v := make(Vector, domain.FeatureWidth)

	digits := card.Digits(cardNumber)
	if len(digits) > domain.CardDigitSlots {
		digits = digits[:domain.CardDigitSlots]
	}
	for i, d := range digits {
		v[i] = float64(d)
	}

	v[domain.AmountSlot] = scaledAmount
	if scaledTime != nil {
		v[domain.TimeSlot] = *scaledTime
	}
	return v
}

// CardDigits decodes the card-digit block of v. Padding zeros are included;
// callers that know the original length can slice the result.
func CardDigits(v Vector) []int {
	n := domain.CardDigitSlots
	if len(v) < n {
		n = len(v)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(v[i])
	}
	return out
}
