package dealcalc

// Declaration-service fee schedule: flat base covering the first five items,
// then a per-item surcharge.
const (
	customsFeeBase     = 25000.0
	customsFeeBaseItems = 5
	customsFeePerItem  = 600.0
)

// customsFee returns the brokerage's declaration-service fee. A positive
// manual amount on the deal overrides the schedule entirely.
func customsFee(itemCount int, manual float64) float64 {
	if manual > 0 {
		return manual
	}
	if itemCount <= customsFeeBaseItems {
		return customsFeeBase
	}
	return customsFeeBase + float64(itemCount-customsFeeBaseItems)*customsFeePerItem
}

// declarationFeeBracket is one step of the statutory customs processing fee:
// the fee applies to customs values up to and including Limit.
type declarationFeeBracket struct {
	Limit float64
	Fee   float64
}

// Statutory processing fee schedule of the customs authority, keyed on the
// total customs value (goods plus the China-local leg) in RUB.
var declarationFeeBrackets = []declarationFeeBracket{
	{200_000, 1_231},
	{450_000, 2_462},
	{1_200_000, 4_924},
	{2_700_000, 13_541},
	{4_200_000, 18_465},
	{5_500_000, 21_344},
	{10_000_000, 49_240},
}

// declarationFeeMax applies above the last bracket.
const declarationFeeMax = 73_860.0

// declarationFee returns the statutory processing fee for a customs value.
// A deal with nothing to declare pays no processing fee.
func declarationFee(customsValueRub float64) float64 {
	if customsValueRub <= 0 {
		return 0
	}
	for _, b := range declarationFeeBrackets {
		if customsValueRub <= b.Limit {
			return b.Fee
		}
	}
	return declarationFeeMax
}
