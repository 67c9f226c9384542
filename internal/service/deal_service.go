package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"longan-backend/internal/dealcalc"
	"longan-backend/internal/model"
	"longan-backend/internal/repository"
	ws "longan-backend/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type DealItemPayload struct {
	ProductID   string `json:"product_id"`
	Article     string `json:"article"`
	Name        string `json:"name"`
	Photo       string `json:"photo"`
	Tnved       string `json:"tnved"`
	Description string `json:"description"`

	PriceSale     float64 `json:"price_sale" binding:"min=0"`
	PriceCurrency string  `json:"price_currency" binding:"omitempty,oneof=CNY USD RUB"`
	Quantity      int     `json:"quantity" binding:"min=0"`

	DutyPercent float64 `json:"duty_percent" binding:"min=0"`
	VatPercent  float64 `json:"vat_percent" binding:"min=0,max=100"`
	Excise      float64 `json:"excise" binding:"min=0"`
	AntiDumping float64 `json:"anti_dumping" binding:"min=0"`

	DimUnitL         float64 `json:"dim_unit_l" binding:"min=0"`
	DimUnitW         float64 `json:"dim_unit_w" binding:"min=0"`
	DimUnitH         float64 `json:"dim_unit_h" binding:"min=0"`
	WeightBruttoUnit float64 `json:"weight_brutto_unit" binding:"min=0"`

	DimPackageL         float64 `json:"dim_package_l" binding:"min=0"`
	DimPackageW         float64 `json:"dim_package_w" binding:"min=0"`
	DimPackageH         float64 `json:"dim_package_h" binding:"min=0"`
	WeightBruttoPackage float64 `json:"weight_brutto_package" binding:"min=0"`
	QtyInPackage        int     `json:"qty_in_package" binding:"min=0"`

	ManualTotalVolume float64 `json:"manual_total_volume" binding:"min=0"`
	ManualTotalWeight float64 `json:"manual_total_weight" binding:"min=0"`
}

type DealRatesPayload struct {
	USD   float64 `json:"usd" binding:"min=0"`
	CNY   float64 `json:"cny" binding:"min=0"`
	CBUSD float64 `json:"cb_usd" binding:"min=0"`
	CBCNY float64 `json:"cb_cny" binding:"min=0"`
}

type DealPayload struct {
	Number       string `json:"number"`
	Status       string `json:"status" binding:"omitempty,oneof=draft sent approved rejected"`
	ClientID     string `json:"client_id"`
	ClientName   string `json:"client_name"`
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	CityFrom     string `json:"city_from"`
	CityTo       string `json:"city_to"`

	DeliveryMethod string `json:"delivery_method" binding:"omitempty,oneof=auto rail sea_rail"`
	Incoterms      string `json:"incoterms"`

	DeliveryCostTotal          float64 `json:"delivery_cost_total" binding:"min=0"`
	DeliveryCostCurrency       string  `json:"delivery_cost_currency" binding:"omitempty,oneof=CNY USD RUB"`
	DeliveryCostBorder         float64 `json:"delivery_cost_border" binding:"min=0"`
	DeliveryCostBorderCurrency string  `json:"delivery_cost_border_currency" binding:"omitempty,oneof=CNY USD RUB"`
	DeliveryCostRussia         float64 `json:"delivery_cost_russia" binding:"min=0"`
	DeliveryCostRussiaCurrency string  `json:"delivery_cost_russia_currency" binding:"omitempty,oneof=CNY USD RUB"`

	DeliveryChinaLocal          float64 `json:"delivery_china_local" binding:"min=0"`
	DeliveryChinaLocalCurrency  string  `json:"delivery_china_local_currency" binding:"omitempty,oneof=CNY USD RUB"`
	DeliveryRussiaLocal         float64 `json:"delivery_russia_local" binding:"min=0"`
	DeliveryRussiaLocalCurrency string  `json:"delivery_russia_local_currency" binding:"omitempty,oneof=CNY USD RUB"`

	Importer          string  `json:"importer" binding:"omitempty,oneof=client longan"`
	CommissionPercent float64 `json:"commission_percent" binding:"min=0"`

	Declarant         string  `json:"declarant" binding:"omitempty,oneof=our client"`
	CustomsCostManual float64 `json:"customs_cost_manual" binding:"min=0"`

	CommissionImporterUSD float64 `json:"commission_importer_usd" binding:"min=0"`
	SwiftUSD              float64 `json:"swift_usd" binding:"min=0"`

	Rates DealRatesPayload `json:"rates"`

	Notes string            `json:"notes"`
	Items []DealItemPayload `json:"items"`
}

// Websocket payload
type DealEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

type DealService interface {
	GetDeals(ctx context.Context, status, search string, page, limit int) ([]model.Deal, int64, error)
	GetDeal(ctx context.Context, id string) (*model.Deal, error)
	CreateDeal(ctx context.Context, userID string, req DealPayload) (*model.Deal, error)
	UpdateDeal(ctx context.Context, userID string, id string, req DealPayload) (*model.Deal, error)
	DeleteDeal(ctx context.Context, userID string, id string) error
	CalculateDeal(ctx context.Context, id string) (*model.Deal, dealcalc.Result, error)
	PreviewDeal(req DealPayload) dealcalc.Result
	ItemFromProduct(ctx context.Context, productID string) (DealItemPayload, error)
}

type dealService struct {
	dealRepo    repository.DealRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewDealService(
	dealRepo repository.DealRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) DealService {
	return &dealService{
		dealRepo:    dealRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

func (s *dealService) GetDeals(ctx context.Context, status, search string, page, limit int) ([]model.Deal, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.dealRepo.List(ctx, status, search, page, limit)
}

func (s *dealService) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	dealID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid deal id: %w", err)
	}

	deal, err := s.dealRepo.FindByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("deal not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return deal, nil
}

func (s *dealService) CreateDeal(ctx context.Context, userID string, req DealPayload) (*model.Deal, error) {
	deal := &model.Deal{}
	if err := applyDealPayload(deal, req); err != nil {
		return nil, err
	}
	if deal.Status == "" {
		deal.Status = model.DealStatusDraft
	}

	if deal.Number == "" {
		number, err := s.nextDealNumber(ctx)
		if err != nil {
			return nil, err
		}
		deal.Number = number
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.dealRepo.Create(txCtx, deal); err != nil {
			return fmt.Errorf("failed to create deal: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(map[string]interface{}{
			"number":      deal.Number,
			"client_name": deal.ClientName,
			"items":       len(deal.Items),
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateDeal,
			EntityID:   deal.ID.String(),
			EntityName: deal.Number,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify("deal_created", deal)
	return deal, nil
}

func (s *dealService) UpdateDeal(ctx context.Context, userID string, id string, req DealPayload) (*model.Deal, error) {
	dealID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid deal id: %w", err)
	}

	deal, err := s.dealRepo.FindByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("deal not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	prevStatus := deal.Status
	if err := applyDealPayload(deal, req); err != nil {
		return nil, err
	}
	if deal.Status == "" {
		deal.Status = prevStatus
	}
	if req.Number != "" && req.Number != deal.Number {
		deal.Number = req.Number
	}

	items := deal.Items
	deal.Items = nil

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.dealRepo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		if err := s.dealRepo.ReplaceItems(txCtx, deal.ID, items); err != nil {
			return fmt.Errorf("failed to replace deal items: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(map[string]interface{}{
			"number":      deal.Number,
			"status":      deal.Status,
			"prev_status": prevStatus,
			"items":       len(items),
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionUpdateDeal,
			EntityID:   deal.ID.String(),
			EntityName: deal.Number,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deal.Items = items
	if deal.Status != prevStatus {
		s.notify("deal_status_changed", deal)
	} else {
		s.notify("deal_updated", deal)
	}
	return deal, nil
}

func (s *dealService) DeleteDeal(ctx context.Context, userID string, id string) error {
	dealID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid deal id: %w", err)
	}

	deal, err := s.dealRepo.FindByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("deal not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.dealRepo.Delete(txCtx, dealID); err != nil {
			return fmt.Errorf("failed to delete deal: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteDeal,
			EntityID:   deal.ID.String(),
			EntityName: deal.Number,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify("deal_deleted", deal)
	return nil
}

func (s *dealService) CalculateDeal(ctx context.Context, id string) (*model.Deal, dealcalc.Result, error) {
	deal, err := s.GetDeal(ctx, id)
	if err != nil {
		return nil, dealcalc.Result{}, err
	}
	return deal, dealcalc.Calculate(ToCalcInput(deal)), nil
}

// PreviewDeal recalculates an unsaved deal snapshot. Nothing is persisted, no
// audit entry is written; the editor calls this on every change.
func (s *dealService) PreviewDeal(req DealPayload) dealcalc.Result {
	deal := &model.Deal{}
	// A preview never fails on reference fields; ids are ignored here.
	_ = applyDealPayload(deal, req)
	return dealcalc.Calculate(ToCalcInput(deal))
}

// ItemFromProduct maps a catalog card to a deal line payload. A card missing a
// VAT rate gets the standard 22, a missing price currency defaults to CNY.
func (s *dealService) ItemFromProduct(ctx context.Context, productID string) (DealItemPayload, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return DealItemPayload{}, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DealItemPayload{}, errors.New("product not found")
		}
		return DealItemPayload{}, fmt.Errorf("database error: %w", err)
	}

	return ItemFromProduct(product), nil
}

// ItemFromProduct is the pure catalog-to-line mapping, exported for the deal
// editor and for tests.
func ItemFromProduct(p *model.Product) DealItemPayload {
	vat := 22.0
	if p.VatPercent != nil {
		vat = *p.VatPercent
	}
	currency := p.PriceCurrency
	if currency == "" {
		currency = string(dealcalc.CNY)
	}

	return DealItemPayload{
		ProductID:           p.ID.String(),
		Article:             p.Article,
		Name:                p.Name,
		Photo:               p.Photo,
		Tnved:               p.Tnved,
		Description:         p.Description,
		PriceSale:           p.PriceSale,
		PriceCurrency:       currency,
		Quantity:            1,
		DutyPercent:         p.DutyPercent,
		VatPercent:          vat,
		Excise:              p.Excise,
		AntiDumping:         p.AntiDumping,
		DimUnitL:            p.DimUnitL,
		DimUnitW:            p.DimUnitW,
		DimUnitH:            p.DimUnitH,
		WeightBruttoUnit:    p.WeightBruttoUnit,
		DimPackageL:         p.DimPackageL,
		DimPackageW:         p.DimPackageW,
		DimPackageH:         p.DimPackageH,
		WeightBruttoPackage: p.WeightBruttoPackage,
		QtyInPackage:        p.QtyInPackage,
	}
}

// nextDealNumber assigns the first free KP-YYYY-MM-DD-NNNN number for today.
func (s *dealService) nextDealNumber(ctx context.Context) (string, error) {
	prefix := "KP-" + time.Now().Format("2006-01-02")
	for n := 1; n <= 9999; n++ {
		candidate := fmt.Sprintf("%s-%04d", prefix, n)
		_, err := s.dealRepo.FindByNumber(ctx, candidate)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to probe deal number: %w", err)
		}
	}
	return "", errors.New("no free deal number left for today")
}

func (s *dealService) notify(event string, deal *model.Deal) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(DealEvent{
		Event: event,
		Data: map[string]interface{}{
			"id":     deal.ID.String(),
			"number": deal.Number,
			"status": deal.Status,
		},
	})
	s.hub.Broadcast <- payload
}

// applyDealPayload copies request fields onto the model and rebuilds the item
// slice in request order.
func applyDealPayload(deal *model.Deal, req DealPayload) error {
	if req.ClientID != "" {
		cid, err := uuid.Parse(req.ClientID)
		if err != nil {
			return fmt.Errorf("invalid client_id: %w", err)
		}
		deal.ClientID = &cid
	} else {
		deal.ClientID = nil
	}
	if req.SupplierID != "" {
		sid, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return fmt.Errorf("invalid supplier_id: %w", err)
		}
		deal.SupplierID = &sid
	} else {
		deal.SupplierID = nil
	}

	deal.Status = req.Status
	deal.ClientName = req.ClientName
	deal.SupplierName = req.SupplierName
	deal.CityFrom = req.CityFrom
	deal.CityTo = req.CityTo
	deal.DeliveryMethod = defaultString(req.DeliveryMethod, model.DeliveryMethodAuto)
	deal.Incoterms = req.Incoterms

	deal.DeliveryCostTotal = req.DeliveryCostTotal
	deal.DeliveryCostCurrency = defaultString(req.DeliveryCostCurrency, "USD")
	deal.DeliveryCostBorder = req.DeliveryCostBorder
	deal.DeliveryCostBorderCurrency = defaultString(req.DeliveryCostBorderCurrency, "USD")
	deal.DeliveryCostRussia = req.DeliveryCostRussia
	deal.DeliveryCostRussiaCurrency = defaultString(req.DeliveryCostRussiaCurrency, "USD")
	deal.DeliveryChinaLocal = req.DeliveryChinaLocal
	deal.DeliveryChinaLocalCurrency = defaultString(req.DeliveryChinaLocalCurrency, "CNY")
	deal.DeliveryRussiaLocal = req.DeliveryRussiaLocal
	deal.DeliveryRussiaLocalCurrency = defaultString(req.DeliveryRussiaLocalCurrency, "RUB")

	deal.Importer = defaultString(req.Importer, model.ImporterClient)
	deal.CommissionPercent = req.CommissionPercent
	deal.Declarant = defaultString(req.Declarant, model.DeclarantOur)
	deal.CustomsCostManual = req.CustomsCostManual
	deal.CommissionImporterUSD = req.CommissionImporterUSD
	deal.SwiftUSD = req.SwiftUSD

	deal.Rates = model.DealRates{
		USD:   req.Rates.USD,
		CNY:   req.Rates.CNY,
		CBUSD: req.Rates.CBUSD,
		CBCNY: req.Rates.CBCNY,
	}
	deal.Notes = req.Notes

	items := make([]model.DealItem, 0, len(req.Items))
	for i, it := range req.Items {
		item := model.DealItem{
			Position:            i,
			Article:             it.Article,
			Name:                it.Name,
			Photo:               it.Photo,
			Tnved:               it.Tnved,
			Description:         it.Description,
			PriceSale:           it.PriceSale,
			PriceCurrency:       defaultString(it.PriceCurrency, "CNY"),
			Quantity:            it.Quantity,
			DutyPercent:         it.DutyPercent,
			VatPercent:          it.VatPercent,
			Excise:              it.Excise,
			AntiDumping:         it.AntiDumping,
			DimUnitL:            it.DimUnitL,
			DimUnitW:            it.DimUnitW,
			DimUnitH:            it.DimUnitH,
			WeightBruttoUnit:    it.WeightBruttoUnit,
			DimPackageL:         it.DimPackageL,
			DimPackageW:         it.DimPackageW,
			DimPackageH:         it.DimPackageH,
			WeightBruttoPackage: it.WeightBruttoPackage,
			QtyInPackage:        it.QtyInPackage,
			ManualTotalVolume:   it.ManualTotalVolume,
			ManualTotalWeight:   it.ManualTotalWeight,
		}
		if it.ProductID != "" {
			pid, err := uuid.Parse(it.ProductID)
			if err != nil {
				return fmt.Errorf("items[%d]: invalid product_id: %w", i, err)
			}
			item.ProductID = &pid
		}
		items = append(items, item)
	}
	deal.Items = items

	return nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ToCalcInput maps a stored deal to the calculation engine's snapshot form.
// Line identity in the result follows the item id when persisted, otherwise
// the position.
func ToCalcInput(deal *model.Deal) dealcalc.Deal {
	items := make([]dealcalc.Item, 0, len(deal.Items))
	for _, it := range deal.Items {
		tempID := fmt.Sprintf("pos-%d", it.Position)
		if it.ID != uuid.Nil {
			tempID = it.ID.String()
		}
		items = append(items, dealcalc.Item{
			TempID:              tempID,
			Article:             it.Article,
			Name:                it.Name,
			Tnved:               it.Tnved,
			PriceSale:           it.PriceSale,
			PriceCurrency:       dealcalc.Currency(it.PriceCurrency),
			Quantity:            it.Quantity,
			DutyPercent:         it.DutyPercent,
			VatPercent:          it.VatPercent,
			Excise:              it.Excise,
			AntiDumping:         it.AntiDumping,
			DimUnitL:            it.DimUnitL,
			DimUnitW:            it.DimUnitW,
			DimUnitH:            it.DimUnitH,
			WeightBruttoUnit:    it.WeightBruttoUnit,
			DimPackageL:         it.DimPackageL,
			DimPackageW:         it.DimPackageW,
			DimPackageH:         it.DimPackageH,
			WeightBruttoPackage: it.WeightBruttoPackage,
			QtyInPackage:        it.QtyInPackage,
			ManualTotalVolume:   it.ManualTotalVolume,
			ManualTotalWeight:   it.ManualTotalWeight,
		})
	}

	return dealcalc.Deal{
		Items:                       items,
		DeliveryCostTotal:           deal.DeliveryCostTotal,
		DeliveryCostCurrency:        dealcalc.Currency(deal.DeliveryCostCurrency),
		DeliveryChinaLocal:          deal.DeliveryChinaLocal,
		DeliveryChinaLocalCurrency:  dealcalc.Currency(deal.DeliveryChinaLocalCurrency),
		DeliveryRussiaLocal:         deal.DeliveryRussiaLocal,
		DeliveryRussiaLocalCurrency: dealcalc.Currency(deal.DeliveryRussiaLocalCurrency),
		Importer:                    dealcalc.ImporterType(deal.Importer),
		CommissionPercent:           deal.CommissionPercent,
		Declarant:                   dealcalc.DeclarantType(deal.Declarant),
		CustomsCostManual:           deal.CustomsCostManual,
		CommissionImporterUSD:       deal.CommissionImporterUSD,
		SwiftUSD:                    deal.SwiftUSD,
		Rates: dealcalc.Rates{
			USD:   deal.Rates.USD,
			CNY:   deal.Rates.CNY,
			CBUSD: deal.Rates.CBUSD,
			CBCNY: deal.Rates.CBCNY,
		},
	}
}
