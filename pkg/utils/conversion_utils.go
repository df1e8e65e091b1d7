package utils

import (
	"math"
	"strconv"
)

// StrToInt64 converts a string to an int64.
// Returns 0 and an error if the conversion fails.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

// Round2 rounds a monetary value to two decimal places. Accumulation happens
// on unrounded floats; rounding is applied only when a value is presented.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
