package payutil

import (
	"fmt"
	"math"

	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultCurrency = "KRW"

// ValidateAmount accepts finite numbers strictly greater than zero.
func ValidateAmount(amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	return amount > 0
}

// ParseCurrency resolves an ISO 4217 code, using DefaultCurrency when code is empty.
func ParseCurrency(code string) (currency.Unit, error) {
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %s", pkgerrors.ErrUnsupportedCurrency, code)
	}
	return unit, nil
}

// FormatCurrency renders amount the way a ko-KR currency formatter does:
// symbol, grouped thousands, and no more fraction digits than the currency uses.
func FormatCurrency(amount decimal.Decimal, code string) (string, error) {
	unit, err := ParseCurrency(code)
	if err != nil {
		return "", err
	}
	scale, _ := currency.Standard.Rounding(unit)
	p := message.NewPrinter(language.Korean)
	return p.Sprintf("%v%v",
		currency.Symbol(unit),
		number.Decimal(amount.InexactFloat64(), number.MaxFractionDigits(scale)),
	), nil
}
