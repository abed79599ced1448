package money

import (
	"fmt"
	"math"
	"strings"
)

// Amounts are carried as int64 minor units. The provider restricts a small
// set of currencies to zero decimal places; everything else uses two.
var zeroDecimalCurrencies = map[string]struct{}{
	"HUF": {},
	"JPY": {},
	"TWD": {},
}

// Decimals returns the number of digits after the decimal point for the
// given ISO currency code. Either 2 or 0.
func Decimals(currency string) int {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return 0
	}
	return 2
}

// Format renders minor units as an exact decimal string, e.g. 1050 "USD" -> "10.50".
func Format(amount int64, currency string) string {
	decimals := Decimals(currency)
	if decimals == 0 {
		return fmt.Sprintf("%d", amount)
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}
	units := amount / 100
	cents := amount % 100

	out := fmt.Sprintf("%d.%02d", units, cents)
	if negative {
		out = "-" + out
	}
	return out
}

// ParseAmount parses an exact decimal string into minor units for the given
// currency. Floats are never involved; more fractional digits than the
// currency allows is an error.
func ParseAmount(value string, currency string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(value, "-") {
		negative = true
		value = value[1:]
	}

	wholePart := value
	fracPart := ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		wholePart = value[:idx]
		fracPart = value[idx+1:]
	}
	if wholePart == "" {
		wholePart = "0"
	}

	decimals := Decimals(currency)
	if len(fracPart) > decimals {
		return 0, fmt.Errorf("amount %q has more than %d decimal digits", value, decimals)
	}
	for len(fracPart) < decimals {
		fracPart += "0"
	}

	var total int64
	for _, r := range wholePart + fracPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", value)
		}
		digit := int64(r - '0')
		if total > (math.MaxInt64-digit)/10 {
			return 0, fmt.Errorf("amount %q is too large", value)
		}
		total = total*10 + digit
	}
	if negative {
		total = -total
	}
	return total, nil
}
