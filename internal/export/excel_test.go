package export

import (
	"bytes"
	"strconv"
	"testing"

	"longan-backend/internal/dealcalc"
	"longan-backend/internal/model"

	"github.com/xuri/excelize/v2"
)

func sampleDeal() *model.Deal {
	return &model.Deal{
		Number:       "KP-2025-03-10-0007",
		ClientName:   "ООО Ромашка",
		SupplierName: "Shenzhen Parts Co.",
		CityFrom:     "Guangzhou",
		CityTo:       "Москва",
		Rates:        model.DealRates{USD: 88.5, CNY: 12.2, CBUSD: 87.9, CBCNY: 12.05},
		Items: []model.DealItem{
			{Position: 0, Article: "A-100", Name: "Кронштейн", Tnved: "7326909807", Quantity: 500},
			{Position: 1, Article: "B-200", Name: "Крепёж", Tnved: "7318158009", Quantity: 1200},
		},
	}
}

func sampleResult() dealcalc.Result {
	return dealcalc.Result{
		Items: []dealcalc.ItemResult{
			{Tnved: "7326909807", TotalPriceOriginal: 5000, TotalPriceRub: 61000, TotalVolume: 1.2345, TotalWeight: 430, DeliveryShareRub: 30000, DutyRub: 3050, VatRub: 14091, CustomsTotalRub: 17141},
			{Tnved: "7318158009", TotalPriceOriginal: 3600, TotalPriceRub: 43920, TotalVolume: 0.8, TotalWeight: 260, DeliveryShareRub: 19400, DutyRub: 2196, VatRub: 10145.52, CustomsTotalRub: 12341.52},
		},
		TotalGoodsRub:           104920,
		DeliveryTotalRub:        49400,
		TotalCustomsPaymentsRub: 29482.52,
		CustomsFeeRub:           25000,
		DeclarationFeeRub:       1231,
		GrandTotalRub:           210033.52,
		DutyByTnved: []dealcalc.TnvedDuty{
			{Tnved: "7326909807", DutyRub: 3050},
			{Tnved: "7318158009", DutyRub: 2196},
		},
	}
}

func TestDealWorkbook_Structure(t *testing.T) {
	deal := sampleDeal()
	calc := sampleResult()

	data, err := DealWorkbook(deal, calc)
	if err != nil {
		t.Fatalf("DealWorkbook() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("DealWorkbook() returned empty bytes")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	if sheet != "КП KP-2025-03-10-0007" {
		t.Errorf("sheet name = %q", sheet)
	}

	title, _ := f.GetCellValue(sheet, "A1")
	if title != "Коммерческое предложение KP-2025-03-10-0007" {
		t.Errorf("title = %q", title)
	}

	// First item row is 7.
	article, _ := f.GetCellValue(sheet, "B7")
	if article != "A-100" {
		t.Errorf("B7 = %q, want A-100", article)
	}
	rub, _ := f.GetCellValue(sheet, "G7")
	if got, _ := strconv.ParseFloat(rub, 64); got != 61000 {
		t.Errorf("G7 = %q, want 61000", rub)
	}
	vol, _ := f.GetCellValue(sheet, "H7")
	if got, _ := strconv.ParseFloat(vol, 64); got != 1.2345 {
		t.Errorf("H7 = %q, want 1.2345", vol)
	}
}

// The workbook must mirror the result it was handed, not recompute it. A
// doctored grand total has to survive into the file untouched.
func TestDealWorkbook_NeverRecomputes(t *testing.T) {
	deal := sampleDeal()
	calc := sampleResult()
	calc.GrandTotalRub = 123456.78

	data, err := DealWorkbook(deal, calc)
	if err != nil {
		t.Fatalf("DealWorkbook() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}

	found := false
	for _, row := range rows {
		for i, cell := range row {
			if cell == "ИТОГО, руб.:" && i+1 < len(row) {
				if got, _ := strconv.ParseFloat(row[i+1], 64); got == 123456.78 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("doctored grand total not found in workbook")
	}
}

func TestDealWorkbook_EmptyDeal(t *testing.T) {
	deal := &model.Deal{Number: "KP-2025-03-10-0001"}
	calc := dealcalc.Result{CustomsFeeRub: 25000, GrandTotalRub: 25000}

	data, err := DealWorkbook(deal, calc)
	if err != nil {
		t.Fatalf("DealWorkbook() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()
}

func TestThinBorders(t *testing.T) {
	borders := thinBorders()
	if len(borders) != 4 {
		t.Fatalf("thinBorders() returned %d borders, want 4", len(borders))
	}
	sides := map[string]bool{}
	for _, b := range borders {
		sides[b.Type] = true
		if b.Style != 1 {
			t.Errorf("border %s style = %d, want 1", b.Type, b.Style)
		}
	}
	for _, side := range []string{"left", "top", "bottom", "right"} {
		if !sides[side] {
			t.Errorf("missing border side %s", side)
		}
	}
}
