package dealcalc

import "testing"

func TestCustomsFee_StepSchedule(t *testing.T) {
	tests := []struct {
		itemCount int
		manual    float64
		want      float64
	}{
		{0, 0, 25000}, // floor: 0 <= 5 still pays the base
		{1, 0, 25000},
		{5, 0, 25000},
		{6, 0, 25600},
		{10, 0, 28000},
		{10, 5000, 5000},  // manual override replaces the schedule
		{3, 18000, 18000}, // manual override below the base still wins
	}
	for _, tt := range tests {
		if got := customsFee(tt.itemCount, tt.manual); got != tt.want {
			t.Errorf("customsFee(%d, %v) = %v, want %v", tt.itemCount, tt.manual, got, tt.want)
		}
	}
}

func TestCustomsFee_ClientDeclarantPaysNothing(t *testing.T) {
	res := Calculate(Deal{
		Items:     []Item{{TempID: "a", PriceSale: 100, PriceCurrency: RUB, Quantity: 1}},
		Declarant: DeclarantClient,
		Rates:     testRates,
	})
	if res.CustomsFeeRub != 0 {
		t.Errorf("customsFee = %v, want 0 when the client declares", res.CustomsFeeRub)
	}
	if res.DeclarationFeeRub != 0 {
		t.Errorf("declarationFee = %v, want 0 when the client declares", res.DeclarationFeeRub)
	}
}

func TestDeclarationFee_Brackets(t *testing.T) {
	tests := []struct {
		value float64
		want  float64
	}{
		{0, 0},
		{1, 1231},
		{200_000, 1231},
		{200_001, 2462},
		{450_000, 2462},
		{450_001, 4924},
		{1_200_000, 4924},
		{2_700_000, 13541},
		{4_200_000, 18465},
		{5_500_000, 21344},
		{10_000_000, 49240},
		{10_000_001, 73860},
		{50_000_000, 73860},
	}
	for _, tt := range tests {
		if got := declarationFee(tt.value); got != tt.want {
			t.Errorf("declarationFee(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestDeclarationFee_UsesGoodsPlusChinaLocalLeg(t *testing.T) {
	// Goods 150 000 RUB + China-local 60 000 RUB = 210 000 customs value,
	// which lands in the second bracket.
	res := Calculate(Deal{
		Items:                      []Item{{TempID: "a", PriceSale: 150_000, PriceCurrency: RUB, Quantity: 1}},
		DeliveryChinaLocal:         60_000,
		DeliveryChinaLocalCurrency: RUB,
		DeliveryCostTotal:          1_000_000, // full delivery must not enter the customs value
		DeliveryCostCurrency:       RUB,
		Declarant:                  DeclarantOur,
		Rates:                      testRates,
	})
	if res.DeclarationFeeRub != 2462 {
		t.Errorf("declarationFee = %v, want 2462 for 210 000 customs value", res.DeclarationFeeRub)
	}
}
