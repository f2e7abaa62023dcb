package payutil

import (
	"math"
	"strings"
	"testing"

	pkgerrors "github.com/honeynil/korea-payment/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderID(t *testing.T) {
	id1 := GenerateOrderID()
	id2 := GenerateOrderID()

	assert.NotEqual(t, id1, id2)
	assert.True(t, strings.HasPrefix(id1, "ORD-"))
	assert.Equal(t, strings.ToUpper(id1), id1)
	assert.Len(t, strings.Split(id1, "-"), 3)
}

func TestNewTransactionID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewTransactionID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestValidateAmount(t *testing.T) {
	t.Run("Positive", func(t *testing.T) {
		assert.True(t, ValidateAmount(100))
		assert.True(t, ValidateAmount(1))
		assert.True(t, ValidateAmount(99999))
		assert.True(t, ValidateAmount(0.5))
	})

	t.Run("ZeroAndNegative", func(t *testing.T) {
		assert.False(t, ValidateAmount(0))
		assert.False(t, ValidateAmount(-1))
		assert.False(t, ValidateAmount(-100))
	})

	t.Run("NonFinite", func(t *testing.T) {
		assert.False(t, ValidateAmount(math.Inf(1)))
		assert.False(t, ValidateAmount(math.Inf(-1)))
		assert.False(t, ValidateAmount(math.NaN()))
	})
}

func TestFormatCurrency(t *testing.T) {
	t.Run("KRW", func(t *testing.T) {
		formatted, err := FormatCurrency(decimal.NewFromInt(10000), "KRW")
		require.NoError(t, err)
		assert.Contains(t, formatted, "10,000")
		assert.NotContains(t, formatted, ".")
	})

	t.Run("DefaultCurrency", func(t *testing.T) {
		formatted, err := FormatCurrency(decimal.NewFromInt(5000), "")
		require.NoError(t, err)
		assert.Contains(t, formatted, "5,000")
	})

	t.Run("LargeAmount", func(t *testing.T) {
		formatted, err := FormatCurrency(decimal.NewFromInt(1234567), "KRW")
		require.NoError(t, err)
		assert.Contains(t, formatted, "1,234,567")
	})

	t.Run("UnknownCurrency", func(t *testing.T) {
		_, err := FormatCurrency(decimal.NewFromInt(100), "XYZ1")
		assert.ErrorIs(t, err, pkgerrors.ErrUnsupportedCurrency)
	})
}

func TestParseCurrency(t *testing.T) {
	unit, err := ParseCurrency("")
	require.NoError(t, err)
	assert.Equal(t, "KRW", unit.String())

	unit, err = ParseCurrency("USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", unit.String())

	_, err = ParseCurrency("won")
	assert.ErrorIs(t, err, pkgerrors.ErrUnsupportedCurrency)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("test@example.com"))
	assert.True(t, ValidateEmail("user.name@domain.co.kr"))

	assert.False(t, ValidateEmail("invalid"))
	assert.False(t, ValidateEmail("missing@domain"))
	assert.False(t, ValidateEmail("@nodomain.com"))
}

func TestValidateKoreanPhone(t *testing.T) {
	assert.True(t, ValidateKoreanPhone("010-1234-5678"))
	assert.True(t, ValidateKoreanPhone("01012345678"))
	assert.True(t, ValidateKoreanPhone("010 1234 5678"))

	assert.False(t, ValidateKoreanPhone("123-456-7890"))
	assert.False(t, ValidateKoreanPhone("02-1234-5678"))
}

func TestMaskCardNumber(t *testing.T) {
	masked := MaskCardNumber("1234567890123456")
	assert.Equal(t, "1234-****-****-3456", masked)

	assert.Equal(t, "****", MaskCardNumber("1234"))
	assert.Equal(t, "1234-****-****-3456", MaskCardNumber("1234-5678-9012-3456"))
	assert.Equal(t, "1234-**-****-5678", MaskCardNumber("1234995678"))
}

func TestMaskPaymentDetails(t *testing.T) {
	details := map[string]any{"cardNumber": "1234567890123456", "installments": float64(3)}

	masked := MaskPaymentDetails(details)

	assert.Equal(t, "1234-****-****-3456", masked["cardNumber"])
	assert.Equal(t, float64(3), masked["installments"])
	assert.Equal(t, "1234567890123456", details["cardNumber"])
	assert.Nil(t, MaskPaymentDetails(nil))
}
