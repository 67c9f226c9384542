package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateCurrency constants for stored reference rates
const (
	RateCurrencyUSD = "USD"
	RateCurrencyCNY = "CNY"
)

// CurrencyRate stores a Central Bank reference rate with temporal validity.
// One row per currency per effective date. These are informational: the
// console shows them next to a deal's manual rates, and the calculation
// engine never reads them.
type CurrencyRate struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Currency    string          `gorm:"type:varchar(3);not null;uniqueIndex:idx_rate_currency_date" json:"currency"` // USD, CNY
	Rate        decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"rate"`                                    // RUB per unit
	EffectiveOn time.Time       `gorm:"type:date;not null;uniqueIndex:idx_rate_currency_date;index" json:"effective_on"`
	Source      string          `gorm:"type:varchar(50);default:'cbr'" json:"source"`
	CreatedAt   time.Time       `json:"created_at"`
}
