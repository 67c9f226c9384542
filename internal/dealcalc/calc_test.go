package dealcalc

import (
	"math"
	"reflect"
	"testing"
)

var testRates = Rates{USD: 88.5, CNY: 12.2, CBUSD: 87.9, CBCNY: 12.05}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// relApprox compares within a relative tolerance, falling back to absolute
// comparison near zero.
func relApprox(a, b, tol float64) bool {
	if b == 0 {
		return math.Abs(a) <= tol
	}
	return math.Abs(a-b)/math.Abs(b) <= tol
}

// --- Currency conversion ---

func TestToRub_RubIdentity(t *testing.T) {
	for _, x := range []float64{0, 1, 99.99, -500, 1e9} {
		if got := ToRub(x, RUB, testRates); got != x {
			t.Errorf("ToRub(%v, RUB) = %v, want %v", x, got, x)
		}
	}
}

func TestToRub_Usd(t *testing.T) {
	if got := ToRub(100, USD, testRates); got != 8850 {
		t.Errorf("ToRub(100, USD) = %v, want 8850", got)
	}
}

func TestToRub_Cny(t *testing.T) {
	if got := ToRub(100, CNY, testRates); got != 1220 {
		t.Errorf("ToRub(100, CNY) = %v, want 1220", got)
	}
}

func TestToRub_Linearity(t *testing.T) {
	for _, cur := range []Currency{CNY, USD, RUB} {
		a, b := 123.45, 678.9
		sum := ToRub(a, cur, testRates) + ToRub(b, cur, testRates)
		whole := ToRub(a+b, cur, testRates)
		if !approx(sum, whole, 1e-9) {
			t.Errorf("%s: ToRub(a)+ToRub(b) = %v, ToRub(a+b) = %v", cur, sum, whole)
		}
	}
}

func TestToRub_NeverUsesCentralBankRates(t *testing.T) {
	skewed := Rates{USD: 88.5, CNY: 12.2, CBUSD: 1, CBCNY: 1}
	if got := ToRub(10, USD, skewed); got != 885 {
		t.Errorf("ToRub must use the manual USD rate, got %v", got)
	}
	if got := ToRub(10, CNY, skewed); got != 122 {
		t.Errorf("ToRub must use the manual CNY rate, got %v", got)
	}
}

// --- Volumetrics ---

// The reference item from a real quote: 12 units, 5 per package, package
// 65x65x28 cm at 16.5 kg, unit 60x60x1.2 cm at 3.2 kg.
func referenceItem() Item {
	return Item{
		TempID:              "it-1",
		PriceSale:           100,
		PriceCurrency:       CNY,
		Quantity:            12,
		DimUnitL:            60,
		DimUnitW:            60,
		DimUnitH:            1.2,
		WeightBruttoUnit:    3.2,
		DimPackageL:         65,
		DimPackageW:         65,
		DimPackageH:         28,
		WeightBruttoPackage: 16.5,
		QtyInPackage:        5,
	}
}

func calcSingle(it Item) ItemResult {
	res := Calculate(Deal{Items: []Item{it}, Rates: testRates})
	return res.Items[0]
}

func TestVolumetrics_PackageBased(t *testing.T) {
	ic := calcSingle(referenceItem())
	// ceil(12/5) = 3 packages
	if !approx(ic.TotalVolume, 3*0.11830, 1e-9) {
		t.Errorf("package volume = %v, want %v", ic.TotalVolume, 3*0.11830)
	}
	if !approx(ic.TotalWeight, 49.5, 1e-9) {
		t.Errorf("package weight = %v, want 49.5", ic.TotalWeight)
	}
}

func TestVolumetrics_PerUnitFallback(t *testing.T) {
	it := referenceItem()
	it.QtyInPackage = 0
	ic := calcSingle(it)
	wantVol := 12 * 0.00432 * 1.25
	wantWt := 12 * 3.2 * 1.1
	if !approx(ic.TotalVolume, wantVol, 1e-9) {
		t.Errorf("per-unit volume = %v, want %v", ic.TotalVolume, wantVol)
	}
	if !approx(ic.TotalWeight, wantWt, 1e-9) {
		t.Errorf("per-unit weight = %v, want %v", ic.TotalWeight, wantWt)
	}
}

func TestVolumetrics_PartialPackageSpecIgnored(t *testing.T) {
	// Package weight missing: the whole package spec is ignored and the
	// per-unit fallback applies.
	it := referenceItem()
	it.WeightBruttoPackage = 0
	ic := calcSingle(it)
	if !approx(ic.TotalVolume, 12*0.00432*1.25, 1e-9) {
		t.Errorf("partial package spec must fall back to per-unit, volume = %v", ic.TotalVolume)
	}
}

func TestVolumetrics_ManualOverride(t *testing.T) {
	it := referenceItem()
	it.ManualTotalVolume = 9.99
	it.ManualTotalWeight = 123.4
	ic := calcSingle(it)
	if ic.TotalVolume != 9.99 {
		t.Errorf("manual volume override: got %v, want 9.99", ic.TotalVolume)
	}
	if ic.TotalWeight != 123.4 {
		t.Errorf("manual weight override: got %v, want 123.4", ic.TotalWeight)
	}
}

func TestVolumetrics_MissingUnitDims(t *testing.T) {
	it := referenceItem()
	it.QtyInPackage = 0
	it.DimUnitH = 0
	it.WeightBruttoUnit = 0
	ic := calcSingle(it)
	if ic.TotalVolume != 0 || ic.TotalWeight != 0 {
		t.Errorf("missing dims/weight must yield zeros, got vol=%v wt=%v", ic.TotalVolume, ic.TotalWeight)
	}
}

func TestVolumetrics_ZeroQuantity(t *testing.T) {
	it := referenceItem()
	it.Quantity = 0
	ic := calcSingle(it)
	if ic.TotalPriceRub != 0 || ic.TotalWeight != 0 {
		t.Errorf("zero quantity must yield zero price and weight, got price=%v wt=%v", ic.TotalPriceRub, ic.TotalWeight)
	}
}

// --- Allocation ---

func TestAllocation_ConservesDeliveryTotal(t *testing.T) {
	a := referenceItem()
	b := referenceItem()
	b.TempID = "it-2"
	b.Quantity = 7
	b.QtyInPackage = 0
	deal := Deal{
		Items:                []Item{a, b},
		DeliveryCostTotal:    3400,
		DeliveryCostCurrency: USD,
		Rates:                testRates,
	}
	res := Calculate(deal)

	var sum float64
	for _, ic := range res.Items {
		sum += ic.DeliveryShareRub
	}
	if !relApprox(sum, res.DeliveryTotalRub, 1e-6) {
		t.Errorf("delivery shares sum to %v, want %v", sum, res.DeliveryTotalRub)
	}
}

func TestAllocation_FallsBackToWeightThenValue(t *testing.T) {
	// No dimensions anywhere: weight basis.
	a := Item{TempID: "a", PriceSale: 100, PriceCurrency: RUB, Quantity: 1, WeightBruttoUnit: 10}
	b := Item{TempID: "b", PriceSale: 100, PriceCurrency: RUB, Quantity: 1, WeightBruttoUnit: 30}
	res := Calculate(Deal{
		Items:                []Item{a, b},
		DeliveryCostTotal:    4000,
		DeliveryCostCurrency: RUB,
		Rates:                testRates,
	})
	if !approx(res.Items[0].DeliveryShareRub, 1000, 1e-9) || !approx(res.Items[1].DeliveryShareRub, 3000, 1e-9) {
		t.Errorf("weight allocation: got %v / %v, want 1000 / 3000", res.Items[0].DeliveryShareRub, res.Items[1].DeliveryShareRub)
	}

	// No weight either: value basis.
	a.WeightBruttoUnit = 0
	b.WeightBruttoUnit = 0
	b.PriceSale = 300
	res = Calculate(Deal{
		Items:                []Item{a, b},
		DeliveryCostTotal:    4000,
		DeliveryCostCurrency: RUB,
		Rates:                testRates,
	})
	if !approx(res.Items[0].DeliveryShareRub, 1000, 1e-9) || !approx(res.Items[1].DeliveryShareRub, 3000, 1e-9) {
		t.Errorf("value allocation: got %v / %v, want 1000 / 3000", res.Items[0].DeliveryShareRub, res.Items[1].DeliveryShareRub)
	}
}

func TestAllocation_AllZeroItems(t *testing.T) {
	res := Calculate(Deal{
		Items:                []Item{{TempID: "a"}, {TempID: "b"}},
		DeliveryCostTotal:    5000,
		DeliveryCostCurrency: RUB,
		Rates:                testRates,
	})
	for _, ic := range res.Items {
		if ic.DeliveryShareRub != 0 {
			t.Errorf("all-zero items must get no delivery share, got %v", ic.DeliveryShareRub)
		}
	}
	// The delivery cost still counts toward the grand total.
	if res.GrandTotalRub < 5000 {
		t.Errorf("grand total %v must still include the delivery cost", res.GrandTotalRub)
	}
}

// --- Customs cascade ---

func TestCascade_Ordering(t *testing.T) {
	it := Item{
		TempID:        "a",
		PriceSale:     1000,
		PriceCurrency: RUB,
		Quantity:      1,
		DutyPercent:   10,
		VatPercent:    22,
	}
	res := Calculate(Deal{Items: []Item{it}, Rates: testRates})
	ic := res.Items[0]
	if ic.DutyBaseRub != 1000 {
		t.Errorf("dutyBase = %v, want 1000", ic.DutyBaseRub)
	}
	if ic.DutyRub != 100 {
		t.Errorf("duty = %v, want 100", ic.DutyRub)
	}
	if ic.VatBaseRub != 1100 {
		t.Errorf("vatBase = %v, want 1100", ic.VatBaseRub)
	}
	if ic.VatRub != 242 {
		t.Errorf("vat = %v, want 242", ic.VatRub)
	}
}

func TestCascade_ChinaLocalLegEntersDutyBase(t *testing.T) {
	it := Item{
		TempID:            "a",
		PriceSale:         1000,
		PriceCurrency:     RUB,
		Quantity:          1,
		DutyPercent:       10,
		VatPercent:        22,
		ManualTotalVolume: 1,
	}
	res := Calculate(Deal{
		Items:                      []Item{it},
		DeliveryCostTotal:          10000,
		DeliveryCostCurrency:       RUB,
		DeliveryChinaLocal:         200,
		DeliveryChinaLocalCurrency: RUB,
		Rates:                      testRates,
	})
	ic := res.Items[0]
	// Only the China-local leg enters the duty base, never the full
	// delivery total.
	if !approx(ic.DutyBaseRub, 1200, 1e-9) {
		t.Errorf("dutyBase = %v, want 1200", ic.DutyBaseRub)
	}
	if !approx(ic.VatBaseRub, 1200+120, 1e-9) {
		t.Errorf("vatBase = %v, want 1320", ic.VatBaseRub)
	}
	if !approx(ic.DeliveryShareRub, 10000, 1e-9) {
		t.Errorf("deliveryShare = %v, want 10000", ic.DeliveryShareRub)
	}
}

func TestCascade_ExciseAndAntiDumping(t *testing.T) {
	it := Item{
		TempID:        "a",
		PriceSale:     500,
		PriceCurrency: RUB,
		Quantity:      4,
		DutyPercent:   5,
		VatPercent:    10,
		Excise:        30,
		AntiDumping:   15,
	}
	res := Calculate(Deal{Items: []Item{it}, Rates: testRates})
	ic := res.Items[0]
	if !approx(ic.ExciseRub, 120, 1e-9) {
		t.Errorf("excise = %v, want 120 (30 x 4 units)", ic.ExciseRub)
	}
	// Anti-dumping is computed on the duty base, in parallel with duty.
	if !approx(ic.AntiDumpingRub, 2000*0.15, 1e-9) {
		t.Errorf("antiDumping = %v, want 300", ic.AntiDumpingRub)
	}
	// Neither excise nor anti-dumping enters the VAT base.
	if !approx(ic.VatBaseRub, 2000+100, 1e-9) {
		t.Errorf("vatBase = %v, want 2100", ic.VatBaseRub)
	}
	want := ic.DutyRub + ic.VatRub + ic.ExciseRub + ic.AntiDumpingRub
	if !approx(ic.CustomsTotalRub, want, 1e-9) {
		t.Errorf("customsTotal = %v, want %v", ic.CustomsTotalRub, want)
	}
}

// --- Aggregation ---

func TestAggregation_OrderIndependent(t *testing.T) {
	a := referenceItem()
	b := referenceItem()
	b.TempID = "it-2"
	b.Quantity = 3
	b.Tnved = "8481 80 739 9"
	deal := Deal{
		Items:                []Item{a, b},
		DeliveryCostTotal:    1200,
		DeliveryCostCurrency: USD,
		Declarant:            DeclarantOur,
		Rates:                testRates,
	}
	forward := Calculate(deal)

	deal.Items = []Item{b, a}
	reversed := Calculate(deal)

	if !approx(forward.GrandTotalRub, reversed.GrandTotalRub, 1e-9) {
		t.Errorf("item order must not affect totals: %v vs %v", forward.GrandTotalRub, reversed.GrandTotalRub)
	}
	if !approx(forward.TotalVatRub, reversed.TotalVatRub, 1e-9) {
		t.Errorf("item order must not affect VAT total: %v vs %v", forward.TotalVatRub, reversed.TotalVatRub)
	}
}

func TestAggregation_DutyGroupedByTnved(t *testing.T) {
	mk := func(id, tnved string, price float64) Item {
		return Item{TempID: id, Tnved: tnved, PriceSale: price, PriceCurrency: RUB, Quantity: 1, DutyPercent: 10}
	}
	res := Calculate(Deal{
		Items: []Item{
			mk("a", "8481 80 739 9", 1000),
			mk("b", "", 500),
			mk("c", "8481 80 739 9", 2000),
		},
		Rates: testRates,
	})
	if len(res.DutyByTnved) != 2 {
		t.Fatalf("expected 2 tnved groups, got %d", len(res.DutyByTnved))
	}
	if res.DutyByTnved[0].Tnved != "8481 80 739 9" || !approx(res.DutyByTnved[0].DutyRub, 300, 1e-9) {
		t.Errorf("group 0 = %+v, want 8481 80 739 9 / 300", res.DutyByTnved[0])
	}
	if res.DutyByTnved[1].Tnved != NoTnved || !approx(res.DutyByTnved[1].DutyRub, 50, 1e-9) {
		t.Errorf("group 1 = %+v, want %q / 50", res.DutyByTnved[1], NoTnved)
	}
}

// --- Commissions and flat fees ---

func TestInvoiceCommission_OnlyForLonganImporter(t *testing.T) {
	it := Item{TempID: "a", PriceSale: 100, PriceCurrency: USD, Quantity: 10}
	deal := Deal{
		Items:             []Item{it},
		Importer:          ImporterLongan,
		CommissionPercent: 5,
		Rates:             testRates,
	}
	res := Calculate(deal)
	if !approx(res.InvoiceCommissionOriginal, 50, 1e-9) {
		t.Errorf("invoiceCommissionOriginal = %v, want 50", res.InvoiceCommissionOriginal)
	}
	if !approx(res.InvoiceCommissionRub, 1000*88.5*0.05, 1e-9) {
		t.Errorf("invoiceCommissionRub = %v, want %v", res.InvoiceCommissionRub, 1000*88.5*0.05)
	}

	deal.Importer = ImporterClient
	res = Calculate(deal)
	if res.InvoiceCommissionRub != 0 || res.InvoiceCommissionOriginal != 0 {
		t.Errorf("client importer must pay no invoice commission, got %v", res.InvoiceCommissionRub)
	}
}

func TestFlatFees_AlwaysConvertedAtUsdRate(t *testing.T) {
	res := Calculate(Deal{
		CommissionImporterUSD: 300,
		SwiftUSD:              50,
		Rates:                 testRates,
	})
	if !approx(res.CommissionImporterRub, 300*88.5, 1e-9) {
		t.Errorf("commissionImporterRub = %v, want %v", res.CommissionImporterRub, 300*88.5)
	}
	if !approx(res.SwiftRub, 50*88.5, 1e-9) {
		t.Errorf("swiftRub = %v, want %v", res.SwiftRub, 50*88.5)
	}
}

// --- Whole-deal properties ---

func TestCalculate_Idempotent(t *testing.T) {
	deal := Deal{
		Items:                      []Item{referenceItem()},
		DeliveryCostTotal:          2500,
		DeliveryCostCurrency:       USD,
		DeliveryChinaLocal:         1500,
		DeliveryChinaLocalCurrency: CNY,
		DeliveryRussiaLocal:        40000,
		DeliveryRussiaLocalCurrency: RUB,
		Importer:                   ImporterLongan,
		CommissionPercent:          3,
		Declarant:                  DeclarantOur,
		CommissionImporterUSD:      200,
		SwiftUSD:                   45,
		Rates:                      testRates,
	}
	first := Calculate(deal)
	second := Calculate(deal)
	if !reflect.DeepEqual(first, second) {
		t.Error("Calculate must be idempotent: two calls on the same deal differ")
	}
}

func TestCalculate_DoesNotMutateInput(t *testing.T) {
	it := referenceItem()
	deal := Deal{Items: []Item{it}, Rates: testRates}
	_ = Calculate(deal)
	if !reflect.DeepEqual(deal.Items[0], it) {
		t.Error("Calculate must not mutate the input deal")
	}
}

func TestCalculate_EmptyDeal(t *testing.T) {
	res := Calculate(Deal{
		DeliveryCostTotal:           1000,
		DeliveryCostCurrency:        RUB,
		DeliveryRussiaLocal:         500,
		DeliveryRussiaLocalCurrency: RUB,
		Declarant:                   DeclarantOur,
		CommissionImporterUSD:       10,
		SwiftUSD:                    5,
		Rates:                       testRates,
	})
	if res.TotalGoodsRub != 0 || res.TotalVolume != 0 || res.TotalCustomsPaymentsRub != 0 {
		t.Errorf("empty deal must have zero item-dependent totals, got %+v", res)
	}
	// 0 items is still <= 5, so the declaration-service fee floor applies
	// when we are the declarant.
	if res.CustomsFeeRub != 25000 {
		t.Errorf("customsFee = %v, want 25000 for an empty deal with our declarant", res.CustomsFeeRub)
	}
	if res.DeclarationFeeRub != 0 {
		t.Errorf("declarationFee = %v, want 0 with nothing to declare", res.DeclarationFeeRub)
	}
	want := 1000 + 500 + 25000 + 10*88.5 + 5*88.5
	if !approx(res.GrandTotalRub, want, 1e-9) {
		t.Errorf("grand total = %v, want %v", res.GrandTotalRub, want)
	}
}

func TestCalculate_GrandTotalComposition(t *testing.T) {
	deal := Deal{
		Items:                      []Item{referenceItem()},
		DeliveryCostTotal:          2500,
		DeliveryCostCurrency:       USD,
		DeliveryChinaLocal:         1500,
		DeliveryChinaLocalCurrency: CNY,
		DeliveryRussiaLocal:        40000,
		DeliveryRussiaLocalCurrency: RUB,
		Importer:                   ImporterLongan,
		CommissionPercent:          3,
		Declarant:                  DeclarantOur,
		CommissionImporterUSD:      200,
		SwiftUSD:                   45,
		Rates:                      testRates,
	}
	res := Calculate(deal)
	want := res.TotalGoodsRub + res.DeliveryTotalRub + res.DeliveryChinaLocalRub +
		res.DeliveryRussiaLocalRub + res.TotalCustomsPaymentsRub +
		res.CustomsFeeRub + res.DeclarationFeeRub +
		res.InvoiceCommissionRub + res.CommissionImporterRub + res.SwiftRub
	if !approx(res.GrandTotalRub, want, 1e-9) {
		t.Errorf("grand total = %v, want sum of components %v", res.GrandTotalRub, want)
	}
}
