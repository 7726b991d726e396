package currency

import (
	"fmt"

	"github.com/angelmondragon/retailops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision every amount posted to a wallet is rounded to.
const MoneyPlaces int32 = 2

// StoredPlaces is the scale of rates, unit costs and order totals in the
// database (NUMERIC(18,4)).
const StoredPlaces int32 = 4

// Convert translates amount between SRD and USD. rate is SRD per 1 USD and
// must be positive even when from == to.
func Convert(amount decimal.Decimal, from, to enums.Currency, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidRate, "exchange rate must be greater than zero").
			WithDetails(map[string]any{"rate": rate.String()})
	}
	if !from.IsValid() || !to.IsValid() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidRate, fmt.Sprintf("unsupported conversion %s -> %s", from, to))
	}

	switch {
	case from == to:
		return amount, nil
	case from == enums.CurrencyUSD && to == enums.CurrencySRD:
		return amount.Mul(rate), nil
	default:
		return amount.Div(rate), nil
	}
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// ConvertMoney converts and rounds in one step. Engine code uses it wherever
// a converted amount is posted to a wallet.
func ConvertMoney(amount decimal.Decimal, from, to enums.Currency, rate decimal.Decimal) (decimal.Decimal, error) {
	converted, err := Convert(amount, from, to, rate)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundMoney(converted), nil
}

// RoundRate rounds an SRD-per-USD rate to the stored scale so the rate used
// for a debit is the rate later read back for its refund.
func RoundRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Round(StoredPlaces)
}

// FitsStoredScale reports whether value survives a NUMERIC(18,4) column
// unchanged.
func FitsStoredScale(value decimal.Decimal) bool {
	return value.Equal(value.Round(StoredPlaces))
}
