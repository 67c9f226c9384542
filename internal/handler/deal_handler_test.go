package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"longan-backend/internal/dealcalc"
	"longan-backend/internal/model"
	"longan-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type fakeDealService struct {
	deal *model.Deal
}

func (f *fakeDealService) GetDeals(ctx context.Context, status, search string, page, limit int) ([]model.Deal, int64, error) {
	if f.deal == nil {
		return nil, 0, nil
	}
	return []model.Deal{*f.deal}, 1, nil
}

func (f *fakeDealService) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	if f.deal == nil {
		return nil, errors.New("deal not found")
	}
	return f.deal, nil
}

func (f *fakeDealService) CreateDeal(ctx context.Context, userID string, req service.DealPayload) (*model.Deal, error) {
	return f.deal, nil
}

func (f *fakeDealService) UpdateDeal(ctx context.Context, userID string, id string, req service.DealPayload) (*model.Deal, error) {
	return f.deal, nil
}

func (f *fakeDealService) DeleteDeal(ctx context.Context, userID string, id string) error {
	return nil
}

func (f *fakeDealService) CalculateDeal(ctx context.Context, id string) (*model.Deal, dealcalc.Result, error) {
	if f.deal == nil {
		return nil, dealcalc.Result{}, errors.New("deal not found")
	}
	return f.deal, dealcalc.Result{GrandTotalRub: 100}, nil
}

func (f *fakeDealService) PreviewDeal(req service.DealPayload) dealcalc.Result {
	return dealcalc.Calculate(dealcalc.Deal{
		Rates:     dealcalc.Rates{USD: req.Rates.USD, CNY: req.Rates.CNY},
		Declarant: dealcalc.DeclarantType(req.Declarant),
	})
}

func (f *fakeDealService) ItemFromProduct(ctx context.Context, productID string) (service.DealItemPayload, error) {
	return service.DealItemPayload{}, errors.New("product not found")
}

func newDealTestRouter(svc service.DealService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDealHandler(svc)

	// Routes bound without the permission middleware; RBAC has its own tests.
	r := gin.New()
	r.GET("/api/deals/:id", h.GetDeal)
	r.POST("/api/deals/preview", h.PreviewDeal)
	r.POST("/api/deals/item-from-product/:productId", h.ItemFromProduct)
	return r
}

func TestGetDeal_NotFound(t *testing.T) {
	r := newDealTestRouter(&fakeDealService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/deals/123", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetDeal_Found(t *testing.T) {
	r := newDealTestRouter(&fakeDealService{deal: &model.Deal{Number: "KP-2025-03-10-0001", Status: "draft"}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/deals/123", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "KP-2025-03-10-0001") {
		t.Errorf("body missing deal number: %s", w.Body.String())
	}
}

func TestPreviewDeal_ReturnsCalculation(t *testing.T) {
	r := newDealTestRouter(&fakeDealService{})

	body := `{"declarant": "our", "rates": {"usd": 88.5, "cny": 12.2}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/deals/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Data dealcalc.Result `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	// An empty deal with us as declarant still carries the base clearance fee.
	if envelope.Data.CustomsFeeRub != 25000 {
		t.Errorf("CustomsFeeRub = %v, want 25000", envelope.Data.CustomsFeeRub)
	}
}

func TestPreviewDeal_BadPayload(t *testing.T) {
	r := newDealTestRouter(&fakeDealService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/deals/preview", strings.NewReader(`{"importer": "nobody"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestItemFromProduct_NotFound(t *testing.T) {
	r := newDealTestRouter(&fakeDealService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/deals/item-from-product/abc", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
