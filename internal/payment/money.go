package payment

import (
	"regexp"
	"strings"

	"poultrymarket/internal/model"

	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FeeFor returns percent of amount rounded up to the next whole shilling.
func FeeFor(percent float64, amount decimal.Decimal) decimal.Decimal {
	if percent <= 0 || !amount.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromFloat(percent)).Div(hundred).Ceil()
}

// ChargeAmount returns what the customer is prompted to pay for an order total:
// the total rounded up to a whole shilling plus the provider fee on it.
func ChargeAmount(percent float64, total decimal.Decimal) (charge, fee decimal.Decimal) {
	base := total.Ceil()
	fee = FeeFor(percent, base)
	return base.Add(fee), fee
}

// WithinTolerance reports whether paid differs from expected by at most tolerance.
func WithinTolerance(expected, paid, tolerance decimal.Decimal) bool {
	return expected.Sub(paid).Abs().LessThanOrEqual(tolerance)
}

// phoneChars is what a typed phone number may contain before parsing.
var phoneChars = regexp.MustCompile(`^\+?[0-9 ()-]+$`)

const phoneRegion = "KE"

// NormalisePhone converts a Kenyan mobile number to the 2547XXXXXXXX / 2541XXXXXXXX form.
// It accepts 07XXXXXXXX, 01XXXXXXXX, 7XXXXXXXX and the 254 forms with or without "+".
func NormalisePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !phoneChars.MatchString(raw) {
		return "", model.ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(raw, phoneRegion)
	if err != nil ||
		!phonenumbers.IsValidNumberForRegion(num, phoneRegion) ||
		phonenumbers.GetNumberType(num) != phonenumbers.MOBILE {
		return "", model.ErrInvalidPhone
	}

	national := phonenumbers.GetNationalSignificantNumber(num)
	// a bare subscriber number without trunk or country prefix is only taken in the 7 range
	if digits := phoneDigits(raw); len(digits) == len(national) && national[0] != '7' {
		return "", model.ErrInvalidPhone
	}

	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}

func phoneDigits(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}
