package coa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextChildCodeFirstChild(t *testing.T) {
	parent := Account{Code: "111", IsHeader: true}

	require.Equal(t, "111-001", nextChildCode(parent, nil, false))
	require.Equal(t, "111-01", nextChildCode(parent, nil, true))
}

func TestNextChildCodeTakesMaxPlusOne(t *testing.T) {
	parent := Account{Code: "41", IsHeader: true}
	siblings := []Account{
		{Code: "41-001"},
		{Code: "41-007"},
		{Code: "41-003"},
	}

	require.Equal(t, "41-008", nextChildCode(parent, siblings, false))
}

func TestNextChildCodeIgnoresNonNumericSuffixes(t *testing.T) {
	parent := Account{Code: "111", IsHeader: true}
	siblings := []Account{
		{Code: "11101-MAIN"},
		{Code: "111-002"},
	}

	require.Equal(t, "111-003", nextChildCode(parent, siblings, false))
}

func TestNextChildCodeNestedParent(t *testing.T) {
	parent := Account{Code: "41-02", IsHeader: true}
	siblings := []Account{{Code: "41-02-001"}}

	require.Equal(t, "41-02-002", nextChildCode(parent, siblings, false))
}
