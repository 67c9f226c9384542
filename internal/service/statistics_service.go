package service

import (
	"context"
	"time"

	"longan-backend/internal/dealcalc"
	"longan-backend/internal/model"
	"longan-backend/internal/repository"

	"gorm.io/gorm"
)

// MonthlyTotal is one month's aggregated deal volume, recomputed by the
// calculation engine from the stored deals. Nothing here is read from a
// stored breakdown; deals never persist their totals.
type MonthlyTotal struct {
	Month         string  `json:"month"` // YYYY-MM
	Deals         int     `json:"deals"`
	GoodsRub      float64 `json:"goods_rub"`
	GrandTotalRub float64 `json:"grand_total_rub"`
}

type StatisticsResponse struct {
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
	TotalDeals         int64            `json:"total_deals"`
	DealsByStatus      map[string]int64 `json:"deals_by_status"`
	MonthlyTotals      []MonthlyTotal   `json:"monthly_totals"`
}

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (StatisticsResponse, error)
}

type statisticsService struct {
	db       *gorm.DB
	dealRepo repository.DealRepository
}

func NewStatisticsService(db *gorm.DB, dealRepo repository.DealRepository) StatisticsService {
	return &statisticsService{db: db, dealRepo: dealRepo}
}

// GetStatistics aggregates deal counts by status and monthly totals over the
// requested time bracket.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (StatisticsResponse, error) {
	var response StatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	byStatus, err := s.dealRepo.CountByStatus(ctx)
	if err != nil {
		return response, err
	}
	response.DealsByStatus = byStatus
	for _, n := range byStatus {
		response.TotalDeals += n
	}

	// Load deals in range with items and run each through the engine. Deal
	// volume is small (a brokerage quote log, not order flow), so recomputing
	// on demand stays cheap.
	var deals []model.Deal
	if err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Order("created_at ASC").
		Find(&deals).Error; err != nil {
		return response, err
	}

	index := make(map[string]int)
	for i := range deals {
		deal := &deals[i]
		res := dealcalc.Calculate(ToCalcInput(deal))

		month := deal.CreatedAt.Format("2006-01")
		j, ok := index[month]
		if !ok {
			j = len(response.MonthlyTotals)
			index[month] = j
			response.MonthlyTotals = append(response.MonthlyTotals, MonthlyTotal{Month: month})
		}
		response.MonthlyTotals[j].Deals++
		response.MonthlyTotals[j].GoodsRub += res.TotalGoodsRub
		response.MonthlyTotals[j].GrandTotalRub += res.GrandTotalRub
	}

	return response, nil
}
