package enums

import "fmt"

// WalletType distinguishes physical cash drawers from bank accounts.
type WalletType string

const (
	WalletTypeCash WalletType = "cash"
	WalletTypeBank WalletType = "bank"
)

var validWalletTypes = []WalletType{
	WalletTypeCash,
	WalletTypeBank,
}

// String implements fmt.Stringer.
func (w WalletType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletType.
func (w WalletType) IsValid() bool {
	for _, candidate := range validWalletTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletType converts raw input into a WalletType.
func ParseWalletType(value string) (WalletType, error) {
	for _, candidate := range validWalletTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet type %q", value)
}

// WalletTransactionType is the direction of a ledger row.
type WalletTransactionType string

const (
	WalletTransactionCredit     WalletTransactionType = "credit"
	WalletTransactionDebit      WalletTransactionType = "debit"
	WalletTransactionAdjustment WalletTransactionType = "adjustment"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionCredit,
	WalletTransactionDebit,
	WalletTransactionAdjustment,
}

func (t WalletTransactionType) String() string {
	return string(t)
}

func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

// WalletReferenceType names what caused a ledger row.
type WalletReferenceType string

const (
	WalletReferenceOrder      WalletReferenceType = "order"
	WalletReferenceTransfer   WalletReferenceType = "transfer"
	WalletReferenceCorrection WalletReferenceType = "correction"
	WalletReferenceAdjustment WalletReferenceType = "adjustment"
)

var validWalletReferenceTypes = []WalletReferenceType{
	WalletReferenceOrder,
	WalletReferenceTransfer,
	WalletReferenceCorrection,
	WalletReferenceAdjustment,
}

func (r WalletReferenceType) String() string {
	return string(r)
}

func (r WalletReferenceType) IsValid() bool {
	for _, candidate := range validWalletReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseWalletReferenceType converts raw input into a WalletReferenceType.
func ParseWalletReferenceType(value string) (WalletReferenceType, error) {
	for _, candidate := range validWalletReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet reference type %q", value)
}

// ManualTransactionKind is the operator-facing manual adjustment verb.
type ManualTransactionKind string

const (
	ManualTransactionAdd     ManualTransactionKind = "add"
	ManualTransactionRemove  ManualTransactionKind = "remove"
	ManualTransactionCorrect ManualTransactionKind = "correct"
)

var validManualTransactionKinds = []ManualTransactionKind{
	ManualTransactionAdd,
	ManualTransactionRemove,
	ManualTransactionCorrect,
}

func (k ManualTransactionKind) String() string {
	return string(k)
}

func (k ManualTransactionKind) IsValid() bool {
	for _, candidate := range validManualTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseManualTransactionKind converts raw input into a ManualTransactionKind.
func ParseManualTransactionKind(value string) (ManualTransactionKind, error) {
	for _, candidate := range validManualTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid manual transaction kind %q", value)
}
