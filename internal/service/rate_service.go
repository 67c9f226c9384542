package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"longan-backend/internal/model"
	"longan-backend/internal/ratefeed"
	"longan-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type StoreRateRequest struct {
	Currency    string  `json:"currency" binding:"required,oneof=USD CNY"`
	Rate        float64 `json:"rate" binding:"required,gt=0"`
	EffectiveOn string  `json:"effective_on" binding:"required"` // YYYY-MM-DD
}

type RateResponse struct {
	ID          string  `json:"id"`
	Currency    string  `json:"currency"`
	Rate        float64 `json:"rate"`
	EffectiveOn string  `json:"effective_on"`
	Source      string  `json:"source"`
}

// LatestRatesResponse carries the newest stored reference rate per currency,
// shown next to a deal's manual rates.
type LatestRatesResponse struct {
	USD *RateResponse `json:"usd"`
	CNY *RateResponse `json:"cny"`
}

type RateService interface {
	StoreRate(ctx context.Context, userID string, req StoreRateRequest) (RateResponse, error)
	GetLatestRates(ctx context.Context) (LatestRatesResponse, error)
	GetRates(ctx context.Context, currency string, page, limit int) ([]RateResponse, int64, error)
	RefreshFromFeed(ctx context.Context, userID string) ([]RateResponse, error)
}

type rateService struct {
	rateRepo  repository.RateRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	feed      *ratefeed.Client
}

func NewRateService(
	rateRepo repository.RateRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	feed *ratefeed.Client,
) RateService {
	return &rateService{
		rateRepo:  rateRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		feed:      feed,
	}
}

func (s *rateService) StoreRate(ctx context.Context, userID string, req StoreRateRequest) (RateResponse, error) {
	effectiveOn, err := time.Parse("2006-01-02", req.EffectiveOn)
	if err != nil {
		return RateResponse{}, fmt.Errorf("invalid effective_on, expected YYYY-MM-DD: %w", err)
	}

	rate := &model.CurrencyRate{
		Currency:    req.Currency,
		Rate:        decimal.NewFromFloat(req.Rate),
		EffectiveOn: effectiveOn,
		Source:      "manual",
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rateRepo.Upsert(txCtx, rate); err != nil {
			return fmt.Errorf("failed to store rate: %w", err)
		}
		return s.logStore(txCtx, userID, []model.CurrencyRate{*rate})
	})
	if err != nil {
		return RateResponse{}, err
	}

	return toRateResponse(*rate), nil
}

func (s *rateService) GetLatestRates(ctx context.Context) (LatestRatesResponse, error) {
	var res LatestRatesResponse

	usd, err := s.rateRepo.FindLatest(ctx, model.RateCurrencyUSD)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return res, fmt.Errorf("failed to load USD rate: %w", err)
	}
	if usd != nil {
		r := toRateResponse(*usd)
		res.USD = &r
	}

	cny, err := s.rateRepo.FindLatest(ctx, model.RateCurrencyCNY)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return res, fmt.Errorf("failed to load CNY rate: %w", err)
	}
	if cny != nil {
		r := toRateResponse(*cny)
		res.CNY = &r
	}

	return res, nil
}

func (s *rateService) GetRates(ctx context.Context, currency string, page, limit int) ([]RateResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	rates, total, err := s.rateRepo.List(ctx, currency, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch rates: %w", err)
	}

	res := make([]RateResponse, 0, len(rates))
	for _, r := range rates {
		res = append(res, toRateResponse(r))
	}
	return res, total, nil
}

// RefreshFromFeed pulls the current CBR bulletin and stores its USD and CNY
// quotes for their effective date.
func (s *rateService) RefreshFromFeed(ctx context.Context, userID string) ([]RateResponse, error) {
	if s.feed == nil {
		return nil, errors.New("rate feed is not configured")
	}

	quotes, err := s.feed.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	stored := make([]model.CurrencyRate, 0, len(quotes))
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, q := range quotes {
			rate := &model.CurrencyRate{
				Currency:    q.Currency,
				Rate:        decimal.NewFromFloat(q.Rate),
				EffectiveOn: q.Date.Truncate(24 * time.Hour),
				Source:      "cbr",
			}
			if err := s.rateRepo.Upsert(txCtx, rate); err != nil {
				return fmt.Errorf("failed to store %s rate: %w", q.Currency, err)
			}
			stored = append(stored, *rate)
		}
		return s.logStore(txCtx, userID, stored)
	})
	if err != nil {
		return nil, err
	}

	res := make([]RateResponse, 0, len(stored))
	for _, r := range stored {
		res = append(res, toRateResponse(r))
	}
	return res, nil
}

func (s *rateService) logStore(ctx context.Context, userID string, rates []model.CurrencyRate) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	entries := make([]map[string]string, 0, len(rates))
	for _, r := range rates {
		entries = append(entries, map[string]string{
			"currency":     r.Currency,
			"rate":         r.Rate.String(),
			"effective_on": r.EffectiveOn.Format("2006-01-02"),
			"source":       r.Source,
		})
	}
	details, _ := json.Marshal(entries)

	audit := &model.AuditLog{
		UserID:   uid,
		Action:   model.ActionStoreRates,
		EntityID: "rates",
		Details:  string(details),
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toRateResponse(r model.CurrencyRate) RateResponse {
	rate, _ := r.Rate.Float64()
	return RateResponse{
		ID:          r.ID.String(),
		Currency:    r.Currency,
		Rate:        rate,
		EffectiveOn: r.EffectiveOn.Format("2006-01-02"),
		Source:      r.Source,
	}
}
