package response

import "github.com/shopspring/decimal"

const MINOR_UNIT_FACTOR = 100

// ToMinorUnits converts amount to the smallest currency unit, rounding half
// away from zero.
func ToMinorUnits(amount decimal.Decimal, factor int64) int64 {
	return amount.Mul(decimal.NewFromInt(factor)).Round(0).IntPart()
}

func (c Cart) TotalResponse(currency string) Total {
	total := c.Total()
	return Total{
		Total:           total,
		TotalMinorUnits: ToMinorUnits(total, MINOR_UNIT_FACTOR),
		Currency:        currency,
	}
}
