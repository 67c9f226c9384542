// Package dealcalc computes the landed-cost breakdown for a deal: per-item
// valuation and volumetrics, proportional allocation of shared freight costs,
// the customs cascade (duty, VAT, excise, anti-dumping), clearance fees and
// commissions, and the grand total in RUB.
//
// Calculate is a pure function over an immutable Deal snapshot: no I/O, no
// shared state, deterministic output. Malformed input is a data-entry concern
// of the caller; the engine assumes well-typed numbers and never fails.
package dealcalc

import "math"

// Currency is one of the three settlement currencies used by deals.
type Currency string

const (
	CNY Currency = "CNY"
	USD Currency = "USD"
	RUB Currency = "RUB"
)

// ImporterType identifies the importer of record on a deal.
type ImporterType string

const (
	ImporterClient ImporterType = "client"
	ImporterLongan ImporterType = "longan"
)

// DeclarantType identifies who performs the customs declaration.
type DeclarantType string

const (
	DeclarantOur    DeclarantType = "our"
	DeclarantClient DeclarantType = "client"
)

// Packing overhead factors for the per-unit volumetrics fallback. Empirical
// business constants confirmed by the operations team; a partial package is
// billed as a full package (ceil) for the same reason.
var (
	PackingVolumeFactor = 1.25
	PackingWeightFactor = 1.1
)

// Rates holds the currency rates attached to a deal. USD and CNY are the
// manually entered deal rates and are the only rates used in calculation.
// CBUSD and CBCNY are Central Bank reference rates shown next to them for
// provenance; they never enter the arithmetic.
type Rates struct {
	USD   float64 `json:"usd"`
	CNY   float64 `json:"cny"`
	CBUSD float64 `json:"cbUsd"`
	CBCNY float64 `json:"cbCny"`
}

// Item is one product line of a deal as the engine sees it. Dimensions are in
// centimeters, weights in kilograms, excise is a flat RUB amount per unit.
type Item struct {
	TempID        string
	Article       string
	Name          string
	Tnved         string
	PriceSale     float64
	PriceCurrency Currency
	Quantity      int
	DutyPercent   float64
	VatPercent    float64
	Excise        float64
	AntiDumping   float64

	DimUnitL         float64
	DimUnitW         float64
	DimUnitH         float64
	WeightBruttoUnit float64

	DimPackageL         float64
	DimPackageW         float64
	DimPackageH         float64
	WeightBruttoPackage float64
	QtyInPackage        int

	// Operator overrides for the computed totals: a positive value replaces
	// the estimate entirely.
	ManualTotalVolume float64
	ManualTotalWeight float64
}

// Deal is the calculation input snapshot. The three delivery cost fields carry
// their own currencies and are treated as independent inputs; keeping
// toBorder+withinRussia equal to total is a form concern, not enforced here.
type Deal struct {
	Items []Item

	DeliveryCostTotal           float64
	DeliveryCostCurrency        Currency
	DeliveryChinaLocal          float64
	DeliveryChinaLocalCurrency  Currency
	DeliveryRussiaLocal         float64
	DeliveryRussiaLocalCurrency Currency

	Importer          ImporterType
	CommissionPercent float64

	Declarant         DeclarantType
	CustomsCostManual float64

	CommissionImporterUSD float64
	SwiftUSD              float64

	Rates Rates
}

// ItemResult is the per-item breakdown. All monetary fields are RUB except
// TotalPriceOriginal, which stays in the item's own currency.
type ItemResult struct {
	TempID             string  `json:"tempId"`
	Tnved              string  `json:"tnved"`
	TotalPriceOriginal float64 `json:"totalPriceOriginal"`
	TotalPriceRub      float64 `json:"totalPriceRub"`
	TotalVolume        float64 `json:"totalVolume"` // m3
	TotalWeight        float64 `json:"totalWeight"` // kg brutto
	DeliveryShareRub   float64 `json:"deliveryShareRub"`
	DutyBaseRub        float64 `json:"dutyBaseRub"`
	DutyRub            float64 `json:"dutyRub"`
	ExciseRub          float64 `json:"exciseRub"`
	AntiDumpingRub     float64 `json:"antiDumpingRub"`
	VatBaseRub         float64 `json:"vatBaseRub"`
	VatRub             float64 `json:"vatRub"`
	CustomsTotalRub    float64 `json:"customsTotalRub"`
}

// TnvedDuty is the duty total for one tariff code, used for declaration lines.
type TnvedDuty struct {
	Tnved   string  `json:"tnved"`
	DutyRub float64 `json:"dutyRub"`
}

// NoTnved is the bucket for items without a tariff code in the duty breakdown.
const NoTnved = "—"

// Result is the full deal breakdown returned by Calculate.
type Result struct {
	Items []ItemResult `json:"items"`

	TotalGoodsRub      float64 `json:"totalGoodsRub"`
	TotalGoodsOriginal float64 `json:"totalGoodsOriginal"`
	TotalVolume        float64 `json:"totalVolume"`
	TotalWeight        float64 `json:"totalWeight"`

	DeliveryTotalRub       float64 `json:"deliveryTotalRub"`
	DeliveryChinaLocalRub  float64 `json:"deliveryChinaLocalRub"`
	DeliveryRussiaLocalRub float64 `json:"deliveryRussiaLocalRub"`

	// CustomsFeeRub is the brokerage's declaration-service fee (manual
	// override or the per-item step schedule). DeclarationFeeRub is the
	// statutory customs-authority processing fee from the progressive
	// bracket table. Both apply only when we act as declarant.
	CustomsFeeRub     float64 `json:"customsFeeRub"`
	DeclarationFeeRub float64 `json:"declarationFeeRub"`

	TotalDutyRub            float64     `json:"totalDutyRub"`
	TotalVatRub             float64     `json:"totalVatRub"`
	TotalExciseRub          float64     `json:"totalExciseRub"`
	TotalAntiDumpingRub     float64     `json:"totalAntiDumpingRub"`
	TotalCustomsPaymentsRub float64     `json:"totalCustomsPaymentsRub"`
	DutyByTnved             []TnvedDuty `json:"dutyByTnved"`

	InvoiceCommissionRub      float64 `json:"invoiceCommissionRub"`
	InvoiceCommissionOriginal float64 `json:"invoiceCommissionOriginal"`
	CommissionImporterRub     float64 `json:"commissionImporterRub"`
	SwiftRub                  float64 `json:"swiftRub"`

	GrandTotalRub float64 `json:"grandTotalRub"`
}

// ToRub converts an amount to rubles using the deal's manual rates. RUB passes
// through unchanged.
func ToRub(amount float64, currency Currency, rates Rates) float64 {
	switch currency {
	case USD:
		return amount * rates.USD
	case CNY:
		return amount * rates.CNY
	default:
		return amount
	}
}

// unitVolume returns the volume of one unit in m3, or 0 when any dimension is
// missing.
func unitVolume(it Item) float64 {
	if it.DimUnitL <= 0 || it.DimUnitW <= 0 || it.DimUnitH <= 0 {
		return 0
	}
	return it.DimUnitL * it.DimUnitW * it.DimUnitH / 1_000_000
}

// packageVolume returns the volume of one shipping package in m3, or 0 when
// any dimension is missing.
func packageVolume(it Item) float64 {
	if it.DimPackageL <= 0 || it.DimPackageW <= 0 || it.DimPackageH <= 0 {
		return 0
	}
	return it.DimPackageL * it.DimPackageW * it.DimPackageH / 1_000_000
}

// itemVolumetrics estimates the total shipping volume and weight of a line.
// Package-based estimation needs the full package spec (count per package,
// dimensions and gross weight); otherwise the per-unit fallback applies with
// the packing overhead factors. A positive manual override wins outright.
func itemVolumetrics(it Item) (volume, weight float64) {
	pkgVol := packageVolume(it)
	if it.QtyInPackage > 0 && pkgVol > 0 && it.WeightBruttoPackage > 0 {
		packages := math.Ceil(float64(it.Quantity) / float64(it.QtyInPackage))
		volume = packages * pkgVol
		weight = packages * it.WeightBruttoPackage
	} else {
		if uv := unitVolume(it); uv > 0 {
			volume = uv * float64(it.Quantity) * PackingVolumeFactor
		}
		if it.WeightBruttoUnit > 0 {
			weight = it.WeightBruttoUnit * float64(it.Quantity) * PackingWeightFactor
		}
	}
	if it.ManualTotalVolume > 0 {
		volume = it.ManualTotalVolume
	}
	if it.ManualTotalWeight > 0 {
		weight = it.ManualTotalWeight
	}
	return volume, weight
}

// allocBasis is the proportional key for distributing deal-level freight
// across items. It is chosen once per deal from deal-wide totals.
type allocBasis int

const (
	allocNone allocBasis = iota
	allocVolume
	allocWeight
	allocValue
)

func chooseBasis(totalVolume, totalWeight, totalGoodsRub float64) allocBasis {
	switch {
	case totalVolume > 0:
		return allocVolume
	case totalWeight > 0:
		return allocWeight
	case totalGoodsRub > 0:
		return allocValue
	default:
		return allocNone
	}
}

// share returns the item's fraction of a deal-level amount under the chosen
// basis. With allocNone (empty deal or all-zero items) nothing is attributed
// to any item; the amount still counts toward the grand total.
func share(amount float64, basis allocBasis, ic ItemResult, totalVolume, totalWeight, totalGoodsRub float64) float64 {
	switch basis {
	case allocVolume:
		return amount * (ic.TotalVolume / totalVolume)
	case allocWeight:
		return amount * (ic.TotalWeight / totalWeight)
	case allocValue:
		return amount * (ic.TotalPriceRub / totalGoodsRub)
	default:
		return 0
	}
}

// Calculate produces the full cost breakdown for a deal. It never fails:
// zero items, zero quantities and missing dimensions all degrade to zeros.
func Calculate(deal Deal) Result {
	rates := deal.Rates

	items := make([]ItemResult, 0, len(deal.Items))
	for _, it := range deal.Items {
		totalPriceOriginal := it.PriceSale * float64(it.Quantity)
		volume, weight := itemVolumetrics(it)
		items = append(items, ItemResult{
			TempID:             it.TempID,
			Tnved:              it.Tnved,
			TotalPriceOriginal: totalPriceOriginal,
			TotalPriceRub:      ToRub(totalPriceOriginal, it.PriceCurrency, rates),
			TotalVolume:        volume,
			TotalWeight:        weight,
		})
	}

	res := Result{
		DeliveryTotalRub:       ToRub(deal.DeliveryCostTotal, deal.DeliveryCostCurrency, rates),
		DeliveryChinaLocalRub:  ToRub(deal.DeliveryChinaLocal, deal.DeliveryChinaLocalCurrency, rates),
		DeliveryRussiaLocalRub: ToRub(deal.DeliveryRussiaLocal, deal.DeliveryRussiaLocalCurrency, rates),
	}
	for _, ic := range items {
		res.TotalVolume += ic.TotalVolume
		res.TotalWeight += ic.TotalWeight
		res.TotalGoodsRub += ic.TotalPriceRub
		res.TotalGoodsOriginal += ic.TotalPriceOriginal
	}

	basis := chooseBasis(res.TotalVolume, res.TotalWeight, res.TotalGoodsRub)

	for i := range items {
		ic := &items[i]
		ic.DeliveryShareRub = share(res.DeliveryTotalRub, basis, *ic, res.TotalVolume, res.TotalWeight, res.TotalGoodsRub)

		// The duty base is the price to the customs frontier: goods value
		// plus the China-local leg only, never the full door-to-door cost.
		chinaLocalShare := share(res.DeliveryChinaLocalRub, basis, *ic, res.TotalVolume, res.TotalWeight, res.TotalGoodsRub)
		it := deal.Items[i]

		ic.DutyBaseRub = ic.TotalPriceRub + chinaLocalShare
		ic.DutyRub = ic.DutyBaseRub * it.DutyPercent / 100
		ic.ExciseRub = it.Excise * float64(it.Quantity)
		ic.AntiDumpingRub = ic.DutyBaseRub * it.AntiDumping / 100
		ic.VatBaseRub = ic.TotalPriceRub + chinaLocalShare + ic.DutyRub
		ic.VatRub = ic.VatBaseRub * it.VatPercent / 100
		ic.CustomsTotalRub = ic.DutyRub + ic.VatRub + ic.ExciseRub + ic.AntiDumpingRub

		res.TotalDutyRub += ic.DutyRub
		res.TotalVatRub += ic.VatRub
		res.TotalExciseRub += ic.ExciseRub
		res.TotalAntiDumpingRub += ic.AntiDumpingRub
	}
	res.Items = items
	res.TotalCustomsPaymentsRub = res.TotalDutyRub + res.TotalVatRub + res.TotalExciseRub + res.TotalAntiDumpingRub
	res.DutyByTnved = dutyByTnved(items)

	if deal.Declarant == DeclarantOur {
		res.CustomsFeeRub = customsFee(len(deal.Items), deal.CustomsCostManual)
		res.DeclarationFeeRub = declarationFee(res.TotalGoodsRub + res.DeliveryChinaLocalRub)
	}

	if deal.Importer == ImporterLongan && deal.CommissionPercent > 0 {
		res.InvoiceCommissionOriginal = res.TotalGoodsOriginal * deal.CommissionPercent / 100
		res.InvoiceCommissionRub = res.TotalGoodsRub * deal.CommissionPercent / 100
	}

	// Always quoted in USD regardless of the deal's other currency settings.
	res.CommissionImporterRub = deal.CommissionImporterUSD * rates.USD
	res.SwiftRub = deal.SwiftUSD * rates.USD

	res.GrandTotalRub = res.TotalGoodsRub +
		res.DeliveryTotalRub +
		res.DeliveryChinaLocalRub +
		res.DeliveryRussiaLocalRub +
		res.TotalCustomsPaymentsRub +
		res.CustomsFeeRub +
		res.DeclarationFeeRub +
		res.InvoiceCommissionRub +
		res.CommissionImporterRub +
		res.SwiftRub

	return res
}

// dutyByTnved groups per-item duty amounts by tariff code, preserving the
// order codes first appear in the deal. Blank codes fall into the NoTnved
// bucket. Declaration lines only; nothing downstream depends on this.
func dutyByTnved(items []ItemResult) []TnvedDuty {
	var groups []TnvedDuty
	index := make(map[string]int)
	for _, ic := range items {
		code := ic.Tnved
		if code == "" {
			code = NoTnved
		}
		i, ok := index[code]
		if !ok {
			i = len(groups)
			index[code] = i
			groups = append(groups, TnvedDuty{Tnved: code})
		}
		groups[i].DutyRub += ic.DutyRub
	}
	return groups
}
