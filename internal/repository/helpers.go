package repository

import (
	"math"
	"strings"
)

// joinName concatenates first and last name, tolerating blanks.
func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// roundCents rounds a monetary value to two decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
