package coa

import (
	"time"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeParties   AccountType = "PARTIES"
	AccountTypeSystem    AccountType = "SYSTEM"
)

// NormalSide is the side on which an account balance increases.
type NormalSide string

const (
	NormalSideDebit  NormalSide = "DR"
	NormalSideCredit NormalSide = "CR"
)

// DefaultNormalSide derives the normal side for new accounts from the
// account type.
func DefaultNormalSide(t AccountType) NormalSide {
	switch t {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeIncome:
		return NormalSideCredit
	default:
		return NormalSideDebit
	}
}

// Account models a chart of accounts node. Headers aggregate, leaves
// accept postings; the two are mutually exclusive.
type Account struct {
	ID            int64
	Code          string
	Name          string
	Type          AccountType
	NormalSide    NormalSide
	IsHeader      bool
	AllowPosting  bool
	ParentID      *int64
	OutletID      *int64
	IsSystem      bool
	OpeningDebit  float64
	OpeningCredit float64
	OpeningLocked bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AccountEdit carries the mutable fields of an account.
type AccountEdit struct {
	ID           int64
	Code         string
	Name         string
	IsHeader     bool
	AllowPosting bool
}

// OpeningChange describes one account's opening balance save. Exactly
// one of Debit/Credit may be non-zero.
type OpeningChange struct {
	AccountID int64
	Debit     float64
	Credit    float64
}

// Well-known system header codes. Outlet-scoped system accounts hang
// off these with an outlet-code suffix, e.g. 11101-MAIN.
const (
	CashHeaderCode    = "111"
	OutletCashCode    = "11101"
	OutletTillCode    = "11102"
	CompanyCashCode   = "11100"
	cashInHandName    = "Cash in Hand"
	tillAccountSuffix = "Till"
)
