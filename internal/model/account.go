package model

// AccountType classifies headers and accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// CreditNormal reports whether an increasing balance shows up as a negative raw
// delta sum for this type, i.e. whether displayed balances are sign-flipped.
func (t AccountType) CreditNormal() bool {
	switch t {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return true
	}
	return false
}

// Header is a category node in the chart of accounts.
type Header struct {
	ID       int64
	Name     string
	Slug     string
	ParentID int64 // 0 = root
	Type     AccountType
}

// IsRoot reports whether the header has no parent.
func (h Header) IsRoot() bool { return h.ParentID == 0 }

// Account is a leaf of the chart that can hold ledger lines.
type Account struct {
	ID       int64
	Name     string
	Slug     string
	HeaderID int64
	Type     AccountType
	Bank     bool // usable as the bank side of receiving/spending entries
}

// FlipBalance reports whether displayed balances negate the raw delta sum.
func (a Account) FlipBalance() bool { return a.Type.CreditNormal() }
