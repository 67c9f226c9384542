package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog card used to pre-populate deal line items. Prices and
// customs parameters are defaults; a deal item copies them and may diverge.
type Product struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Article    string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"article"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	Photo      string     `gorm:"type:text" json:"photo"`
	Tnved      string     `gorm:"type:varchar(20)" json:"tnved"`
	Description string    `gorm:"type:text" json:"description"`
	SupplierID *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id"`
	Supplier   *Partner   `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`

	PriceSale     float64 `gorm:"type:decimal(18,4);default:0" json:"price_sale"`
	PriceCurrency string  `gorm:"type:varchar(3)" json:"price_currency"` // blank defaults to CNY on deal items

	DutyPercent float64  `gorm:"type:decimal(8,4);default:0" json:"duty_percent"`
	VatPercent  *float64 `gorm:"type:decimal(8,4)" json:"vat_percent"` // nil defaults to 22 on deal items
	Excise      float64  `gorm:"type:decimal(18,4);default:0" json:"excise"`
	AntiDumping float64  `gorm:"type:decimal(8,4);default:0" json:"anti_dumping"`

	DimUnitL         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_unit_l"`
	DimUnitW         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_unit_w"`
	DimUnitH         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_unit_h"`
	WeightBruttoUnit float64 `gorm:"type:decimal(10,3);default:0" json:"weight_brutto_unit"`

	DimPackageL         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_package_l"`
	DimPackageW         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_package_w"`
	DimPackageH         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_package_h"`
	WeightBruttoPackage float64 `gorm:"type:decimal(10,3);default:0" json:"weight_brutto_package"`
	QtyInPackage        int     `gorm:"type:int;default:0" json:"qty_in_package"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
