// Package export renders a calculated deal as an xlsx workbook. It formats an
// existing calculation result and never recomputes any figure.
package export

import (
	"bytes"
	"fmt"
	"math"

	"longan-backend/internal/dealcalc"
	"longan-backend/internal/model"

	"github.com/xuri/excelize/v2"
)

// DealWorkbook builds the quote spreadsheet for a deal from its calculation
// result and returns the file contents as a byte slice.
func DealWorkbook(deal *model.Deal, calc dealcalc.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "КП " + deal.Number
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O"}
	lastCol := columns[len(columns)-1]

	widths := []float64{5, 14, 36, 14, 8, 14, 14, 10, 10, 13, 13, 13, 11, 13, 14}
	for i, col := range columns {
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 10},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 10},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	cellStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create cell style: %w", err)
	}

	summaryLabelStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary label style: %w", err)
	}

	summaryValueStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary value style: %w", err)
	}

	grandTotalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})
	if err != nil {
		return nil, fmt.Errorf("create grand total style: %w", err)
	}

	// Header rows 1-4: number, parties, route, rates.
	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", "Коммерческое предложение "+deal.Number)
	f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle)

	f.SetCellValue(sheetName, "A2", "Клиент: "+deal.ClientName)
	f.SetCellValue(sheetName, "F2", "Поставщик: "+deal.SupplierName)
	f.SetCellValue(sheetName, "A3", fmt.Sprintf("Маршрут: %s — %s (%s)", deal.CityFrom, deal.CityTo, deal.DeliveryMethod))
	f.SetCellValue(sheetName, "A4", fmt.Sprintf("Курсы: USD %.4f, CNY %.4f (ЦБ: %.4f / %.4f)",
		deal.Rates.USD, deal.Rates.CNY, deal.Rates.CBUSD, deal.Rates.CBCNY))
	f.SetCellStyle(sheetName, "A2", lastCol+"4", subtitleStyle)

	// Row 6: column headers.
	headers := []string{
		"№", "Артикул", "Наименование", "ТН ВЭД", "Кол-во",
		"Сумма (вал.)", "Сумма, руб.", "Объём, м3", "Вес, кг",
		"Доставка, руб.", "Пошлина, руб.", "НДС, руб.", "Акциз, руб.",
		"Антидемпинг, руб.", "Таможня итого, руб.",
	}
	for i, h := range headers {
		f.SetCellValue(sheetName, fmt.Sprintf("%s6", columns[i]), h)
	}
	f.SetCellStyle(sheetName, "A6", lastCol+"6", headerStyle)

	// Item rows. The deal carries the descriptive fields, the result carries
	// the money; both are ordered by position.
	row := 7
	for i, it := range deal.Items {
		if i >= len(calc.Items) {
			break
		}
		ic := calc.Items[i]
		rowStr := fmt.Sprintf("%d", row)

		f.SetCellValue(sheetName, "A"+rowStr, i+1)
		f.SetCellValue(sheetName, "B"+rowStr, it.Article)
		f.SetCellValue(sheetName, "C"+rowStr, it.Name)
		f.SetCellValue(sheetName, "D"+rowStr, it.Tnved)
		f.SetCellValue(sheetName, "E"+rowStr, it.Quantity)
		f.SetCellValue(sheetName, "F"+rowStr, round2(ic.TotalPriceOriginal))
		f.SetCellValue(sheetName, "G"+rowStr, round2(ic.TotalPriceRub))
		f.SetCellValue(sheetName, "H"+rowStr, round4(ic.TotalVolume))
		f.SetCellValue(sheetName, "I"+rowStr, round2(ic.TotalWeight))
		f.SetCellValue(sheetName, "J"+rowStr, round2(ic.DeliveryShareRub))
		f.SetCellValue(sheetName, "K"+rowStr, round2(ic.DutyRub))
		f.SetCellValue(sheetName, "L"+rowStr, round2(ic.VatRub))
		f.SetCellValue(sheetName, "M"+rowStr, round2(ic.ExciseRub))
		f.SetCellValue(sheetName, "N"+rowStr, round2(ic.AntiDumpingRub))
		f.SetCellValue(sheetName, "O"+rowStr, round2(ic.CustomsTotalRub))
		f.SetCellStyle(sheetName, "A"+rowStr, lastCol+rowStr, cellStyle)

		row++
	}

	// Summary block.
	row++
	summary := []struct {
		label string
		value float64
	}{
		{"Товары, руб.:", calc.TotalGoodsRub},
		{"Доставка (основное плечо), руб.:", calc.DeliveryTotalRub},
		{"Доставка по Китаю, руб.:", calc.DeliveryChinaLocalRub},
		{"Доставка по России, руб.:", calc.DeliveryRussiaLocalRub},
		{"Таможенные платежи, руб.:", calc.TotalCustomsPaymentsRub},
		{"Оформление декларации, руб.:", calc.CustomsFeeRub},
		{"Таможенный сбор, руб.:", calc.DeclarationFeeRub},
		{"Комиссия с инвойса, руб.:", calc.InvoiceCommissionRub},
		{"Комиссия импортёра, руб.:", calc.CommissionImporterRub},
		{"SWIFT, руб.:", calc.SwiftRub},
	}
	for _, s := range summary {
		rowStr := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetName, "C"+rowStr, s.label)
		f.SetCellStyle(sheetName, "C"+rowStr, "C"+rowStr, summaryLabelStyle)
		f.SetCellValue(sheetName, "D"+rowStr, round2(s.value))
		f.SetCellStyle(sheetName, "D"+rowStr, "D"+rowStr, summaryValueStyle)
		row++
	}

	rowStr := fmt.Sprintf("%d", row)
	f.SetCellValue(sheetName, "C"+rowStr, "ИТОГО, руб.:")
	f.SetCellStyle(sheetName, "C"+rowStr, "C"+rowStr, grandTotalStyle)
	f.SetCellValue(sheetName, "D"+rowStr, round2(calc.GrandTotalRub))
	f.SetCellStyle(sheetName, "D"+rowStr, "D"+rowStr, grandTotalStyle)
	row += 2

	// Duty by tariff code, for the declaration.
	if len(calc.DutyByTnved) > 0 {
		rowStr = fmt.Sprintf("%d", row)
		f.SetCellValue(sheetName, "C"+rowStr, "Пошлины по кодам ТН ВЭД")
		f.SetCellStyle(sheetName, "C"+rowStr, "C"+rowStr, summaryValueStyle)
		row++
		for _, g := range calc.DutyByTnved {
			rowStr = fmt.Sprintf("%d", row)
			f.SetCellValue(sheetName, "C"+rowStr, g.Tnved)
			f.SetCellValue(sheetName, "D"+rowStr, round2(g.DutyRub))
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// thinBorders returns thin borders for all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
