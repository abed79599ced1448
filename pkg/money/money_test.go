package money_test

import (
	"testing"

	"github.com/smallbiznis/payflow/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimals(t *testing.T) {
	assert.Equal(t, 2, money.Decimals("USD"))
	assert.Equal(t, 2, money.Decimals("EUR"))
	assert.Equal(t, 0, money.Decimals("JPY"))
	assert.Equal(t, 0, money.Decimals("HUF"))
	assert.Equal(t, 0, money.Decimals("TWD"))
	assert.Equal(t, 0, money.Decimals(" jpy "))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "10.50", money.Format(1050, "USD"))
	assert.Equal(t, "0.05", money.Format(5, "USD"))
	assert.Equal(t, "-3.07", money.Format(-307, "EUR"))
	assert.Equal(t, "1500", money.Format(1500, "JPY"))
	assert.Equal(t, "0", money.Format(0, "HUF"))
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		value    string
		currency string
		want     int64
	}{
		{"10.50", "USD", 1050},
		{"10.5", "USD", 1050},
		{"10", "USD", 1000},
		{".99", "USD", 99},
		{"-3.07", "EUR", -307},
		{"1500", "JPY", 1500},
		{" 12.34 ", "USD", 1234},
	}
	for _, tc := range cases {
		got, err := money.ParseAmount(tc.value, tc.currency)
		require.NoError(t, err, "parse %q %s", tc.value, tc.currency)
		assert.Equal(t, tc.want, got, "parse %q %s", tc.value, tc.currency)
	}
}

func TestParseAmountRejectsInvalidInput(t *testing.T) {
	_, err := money.ParseAmount("", "USD")
	assert.Error(t, err)

	_, err = money.ParseAmount("abc", "USD")
	assert.Error(t, err)

	// More fractional digits than the currency allows must not round.
	_, err = money.ParseAmount("10.505", "USD")
	assert.Error(t, err)

	_, err = money.ParseAmount("1500.5", "JPY")
	assert.Error(t, err)
}

func TestParseAmountRejectsOverflow(t *testing.T) {
	// One past the int64 ceiling must error, not wrap.
	_, err := money.ParseAmount("92233720368547758.08", "USD")
	assert.Error(t, err)

	_, err = money.ParseAmount("9999999999999999999999", "JPY")
	assert.Error(t, err)

	// The ceiling itself still parses.
	got, err := money.ParseAmount("92233720368547758.07", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, amount := range []int64{0, 1, 99, 100, 1050, 123456789} {
		parsed, err := money.ParseAmount(money.Format(amount, "USD"), "USD")
		require.NoError(t, err)
		assert.Equal(t, amount, parsed)
	}
}
