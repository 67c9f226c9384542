package service

import (
	"testing"

	"longan-backend/internal/dealcalc"
	"longan-backend/internal/model"

	"github.com/google/uuid"
)

func TestItemFromProduct_Defaults(t *testing.T) {
	vat := 10.0
	tests := []struct {
		name         string
		product      model.Product
		wantVat      float64
		wantCurrency string
	}{
		{
			name:         "missing vat and currency fall back to 22 and CNY",
			product:      model.Product{Article: "A-1", Name: "Widget"},
			wantVat:      22,
			wantCurrency: "CNY",
		},
		{
			name:         "explicit vat and currency are kept",
			product:      model.Product{Article: "A-2", Name: "Gadget", VatPercent: &vat, PriceCurrency: "USD"},
			wantVat:      10,
			wantCurrency: "USD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.product.ID = uuid.New()
			item := ItemFromProduct(&tt.product)

			if item.VatPercent != tt.wantVat {
				t.Errorf("VatPercent = %v, want %v", item.VatPercent, tt.wantVat)
			}
			if item.PriceCurrency != tt.wantCurrency {
				t.Errorf("PriceCurrency = %q, want %q", item.PriceCurrency, tt.wantCurrency)
			}
			if item.ProductID != tt.product.ID.String() {
				t.Errorf("ProductID = %q, want %q", item.ProductID, tt.product.ID.String())
			}
			if item.Quantity != 1 {
				t.Errorf("Quantity = %d, want 1", item.Quantity)
			}
		})
	}
}

func TestItemFromProduct_CopiesCustomsFields(t *testing.T) {
	p := &model.Product{
		Article:             "BRK-55",
		Name:                "Кронштейн",
		Tnved:               "7326909807",
		PriceSale:           12.5,
		DutyPercent:         5,
		Excise:              3,
		AntiDumping:         1.5,
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

	item := ItemFromProduct(p)
	if item.Tnved != p.Tnved || item.DutyPercent != 5 || item.Excise != 3 || item.AntiDumping != 1.5 {
		t.Errorf("customs fields not copied: %+v", item)
	}
	if item.QtyInPackage != 5 || item.WeightBruttoPackage != 16.5 {
		t.Errorf("package fields not copied: %+v", item)
	}
}

func TestApplyDealPayload_ItemOrderAndDefaults(t *testing.T) {
	deal := &model.Deal{}
	req := DealPayload{
		ClientName: "ООО Ромашка",
		Items: []DealItemPayload{
			{Name: "first", Quantity: 10},
			{Name: "second", Quantity: 20, PriceCurrency: "USD"},
			{Name: "third", Quantity: 30},
		},
	}

	if err := applyDealPayload(deal, req); err != nil {
		t.Fatalf("applyDealPayload() error = %v", err)
	}

	if len(deal.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(deal.Items))
	}
	for i, want := range []string{"first", "second", "third"} {
		if deal.Items[i].Name != want {
			t.Errorf("items[%d].Name = %q, want %q", i, deal.Items[i].Name, want)
		}
		if deal.Items[i].Position != i {
			t.Errorf("items[%d].Position = %d, want %d", i, deal.Items[i].Position, i)
		}
	}

	if deal.Items[0].PriceCurrency != "CNY" {
		t.Errorf("blank item currency = %q, want CNY", deal.Items[0].PriceCurrency)
	}
	if deal.Items[1].PriceCurrency != "USD" {
		t.Errorf("explicit item currency = %q, want USD", deal.Items[1].PriceCurrency)
	}

	if deal.DeliveryMethod != model.DeliveryMethodAuto {
		t.Errorf("DeliveryMethod = %q, want auto", deal.DeliveryMethod)
	}
	if deal.Importer != model.ImporterClient {
		t.Errorf("Importer = %q, want client", deal.Importer)
	}
	if deal.Declarant != model.DeclarantOur {
		t.Errorf("Declarant = %q, want our", deal.Declarant)
	}
	if deal.DeliveryCostCurrency != "USD" || deal.DeliveryChinaLocalCurrency != "CNY" || deal.DeliveryRussiaLocalCurrency != "RUB" {
		t.Errorf("delivery currency defaults wrong: %q %q %q",
			deal.DeliveryCostCurrency, deal.DeliveryChinaLocalCurrency, deal.DeliveryRussiaLocalCurrency)
	}
}

func TestApplyDealPayload_RejectsBadReferences(t *testing.T) {
	deal := &model.Deal{}

	if err := applyDealPayload(deal, DealPayload{ClientID: "not-a-uuid"}); err == nil {
		t.Error("expected error for invalid client_id")
	}
	if err := applyDealPayload(deal, DealPayload{Items: []DealItemPayload{{ProductID: "nope"}}}); err == nil {
		t.Error("expected error for invalid item product_id")
	}
}

func TestToCalcInput_Mapping(t *testing.T) {
	itemID := uuid.New()
	deal := &model.Deal{
		DeliveryCostTotal:           1000,
		DeliveryCostCurrency:        "USD",
		DeliveryChinaLocal:          500,
		DeliveryChinaLocalCurrency:  "CNY",
		DeliveryRussiaLocal:         20000,
		DeliveryRussiaLocalCurrency: "RUB",
		Importer:                    model.ImporterLongan,
		CommissionPercent:           3,
		Declarant:                   model.DeclarantOur,
		CustomsCostManual:           9000,
		CommissionImporterUSD:       10,
		SwiftUSD:                    5,
		Rates:                       model.DealRates{USD: 88.5, CNY: 12.2, CBUSD: 87.9, CBCNY: 12.05},
		Items: []model.DealItem{
			{
				ID:            itemID,
				Position:      0,
				Tnved:         "7326909807",
				PriceSale:     12.5,
				PriceCurrency: "CNY",
				Quantity:      12,
				DutyPercent:   5,
				VatPercent:    22,
			},
			{Position: 1, Name: "unsaved line", Quantity: 3},
		},
	}

	in := ToCalcInput(deal)

	if len(in.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(in.Items))
	}
	if in.Items[0].TempID != itemID.String() {
		t.Errorf("persisted item TempID = %q, want item id", in.Items[0].TempID)
	}
	if in.Items[1].TempID != "pos-1" {
		t.Errorf("unsaved item TempID = %q, want pos-1", in.Items[1].TempID)
	}
	if in.Items[0].PriceCurrency != dealcalc.CNY || in.Items[0].DutyPercent != 5 {
		t.Errorf("item fields not mapped: %+v", in.Items[0])
	}
	if in.Importer != dealcalc.ImporterLongan || in.Declarant != dealcalc.DeclarantOur {
		t.Errorf("actors not mapped: %q %q", in.Importer, in.Declarant)
	}
	if in.CustomsCostManual != 9000 || in.CommissionImporterUSD != 10 || in.SwiftUSD != 5 {
		t.Errorf("fee fields not mapped")
	}
	if in.Rates.USD != 88.5 || in.Rates.CBCNY != 12.05 {
		t.Errorf("rates not mapped: %+v", in.Rates)
	}
}

// A payload routed through applyDealPayload and ToCalcInput must produce the
// same engine output as building the snapshot by hand; preview and persisted
// calculation share one semantics.
func TestPreviewMatchesStoredCalculation(t *testing.T) {
	req := DealPayload{
		DeliveryCostTotal:    1000,
		DeliveryCostCurrency: "USD",
		DeliveryChinaLocal:   500,
		Rates:                DealRatesPayload{USD: 88.5, CNY: 12.2},
		Items: []DealItemPayload{
			{Name: "line", PriceSale: 12.5, Quantity: 12, DutyPercent: 5, VatPercent: 22,
				DimUnitL: 60, DimUnitW: 60, DimUnitH: 1.2, WeightBruttoUnit: 3.2},
		},
	}

	deal := &model.Deal{}
	if err := applyDealPayload(deal, req); err != nil {
		t.Fatalf("applyDealPayload() error = %v", err)
	}
	stored := dealcalc.Calculate(ToCalcInput(deal))

	svc := &dealService{}
	preview := svc.PreviewDeal(req)

	if preview.GrandTotalRub != stored.GrandTotalRub {
		t.Errorf("preview grand total = %v, stored = %v", preview.GrandTotalRub, stored.GrandTotalRub)
	}
	if len(preview.Items) != len(stored.Items) {
		t.Fatalf("item counts differ: %d vs %d", len(preview.Items), len(stored.Items))
	}
	for i := range preview.Items {
		if preview.Items[i].CustomsTotalRub != stored.Items[i].CustomsTotalRub {
			t.Errorf("item %d customs totals differ", i)
		}
	}
}
