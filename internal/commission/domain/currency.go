package domain

import "strings"

// Minor-unit exponents for currencies that do not use two decimal places.
var currencyPrecision = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"IDR": 0,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"VND": 0,
}

// PrecisionForCurrency returns the rounding exponent for an ISO 4217 code.
func PrecisionForCurrency(currency string) int32 {
	if precision, ok := currencyPrecision[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return precision
	}
	return 2
}
