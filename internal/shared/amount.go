package shared

import "math"

// Tolerance is the single rounding tolerance used wherever monetary
// balance comparisons occur.
const Tolerance = 0.005

// JournalTolerance is the stricter tolerance applied when validating
// user-entered journal voucher lines.
const JournalTolerance = 0.004

// NearlyZero reports whether v is within Tolerance of zero.
func NearlyZero(v float64) bool {
	return math.Abs(v) <= Tolerance
}

// Balanced reports whether total debits and credits agree within
// Tolerance.
func Balanced(debit, credit float64) bool {
	return math.Abs(debit-credit) <= Tolerance
}

// Round2 rounds to two decimal places, the grain the ledger stores.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
