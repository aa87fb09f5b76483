package coa

import (
	"fmt"
	"strconv"
	"strings"
)

// headers get two digits, leaves three
const (
	headerSuffixWidth = 2
	leafSuffixWidth   = 3
)

// nextChildCode derives a fresh code for a child of parent by scanning
// the trailing dash-delimited numeric segment of every sibling and
// taking max+1. Callers must hold the parent row lock so two
// concurrent creates cannot both observe the same max.
func nextChildCode(parent Account, siblings []Account, isHeader bool) string {
	max := 0
	for _, sib := range siblings {
		n, ok := trailingNumber(sib.Code)
		if !ok {
			continue
		}
		if n > max {
			max = n
		}
	}
	width := leafSuffixWidth
	if isHeader {
		width = headerSuffixWidth
	}
	return fmt.Sprintf("%s-%0*d", parent.Code, width, max+1)
}

// trailingNumber parses the last dash-delimited segment of a code.
func trailingNumber(code string) (int, bool) {
	segs := strings.Split(code, "-")
	last := segs[len(segs)-1]
	n, err := strconv.Atoi(last)
	if err != nil {
		return 0, false
	}
	return n, true
}
