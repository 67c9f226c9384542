package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DealStatus constants
const (
	DealStatusDraft    = "draft"
	DealStatusSent     = "sent"
	DealStatusApproved = "approved"
	DealStatusRejected = "rejected"
)

// DeliveryMethod constants
const (
	DeliveryMethodAuto    = "auto"
	DeliveryMethodRail    = "rail"
	DeliveryMethodSeaRail = "sea_rail"
)

// Importer constants: who acts as importer of record
const (
	ImporterClient = "client"
	ImporterLongan = "longan"
)

// Declarant constants: who performs the customs declaration
const (
	DeclarantOur    = "our"
	DeclarantClient = "client"
)

// DealRates holds the currency rates frozen into a deal. USD/CNY are manual
// deal rates used in calculation; the CB pair is the Central Bank reference
// shown for provenance only.
type DealRates struct {
	USD   float64 `gorm:"type:decimal(12,4);not null;default:0" json:"usd"`
	CNY   float64 `gorm:"type:decimal(12,4);not null;default:0" json:"cny"`
	CBUSD float64 `gorm:"column:cb_usd;type:decimal(12,4);not null;default:0" json:"cb_usd"`
	CBCNY float64 `gorm:"column:cb_cny;type:decimal(12,4);not null;default:0" json:"cb_cny"`
}

// Deal is the aggregate root for a commercial quote: line items, logistics
// terms, customs and commission parameters. All cost breakdowns are derived
// on demand by the calculation engine and never stored.
type Deal struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number       string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"number"`
	Status       string     `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"` // draft, sent, approved, rejected
	ClientID     *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Client       *Partner   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ClientName   string     `gorm:"type:varchar(255)" json:"client_name"`
	SupplierID   *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id"`
	Supplier     *Partner   `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	SupplierName string     `gorm:"type:varchar(255)" json:"supplier_name"`
	CityFrom     string     `gorm:"type:varchar(100)" json:"city_from"`
	CityTo       string     `gorm:"type:varchar(100)" json:"city_to"`

	DeliveryMethod string `gorm:"type:varchar(20);default:'auto'" json:"delivery_method"` // auto, rail, sea_rail
	Incoterms      string `gorm:"type:varchar(10)" json:"incoterms"`

	// Three delivery cost inputs, each in its own currency. Border + Russia
	// equalling the total is a form convenience, not a stored invariant.
	DeliveryCostTotal          float64 `gorm:"type:decimal(18,2);default:0" json:"delivery_cost_total"`
	DeliveryCostCurrency       string  `gorm:"type:varchar(3);default:'USD'" json:"delivery_cost_currency"`
	DeliveryCostBorder         float64 `gorm:"type:decimal(18,2);default:0" json:"delivery_cost_border"`
	DeliveryCostBorderCurrency string  `gorm:"type:varchar(3);default:'USD'" json:"delivery_cost_border_currency"`
	DeliveryCostRussia         float64 `gorm:"type:decimal(18,2);default:0" json:"delivery_cost_russia"`
	DeliveryCostRussiaCurrency string  `gorm:"type:varchar(3);default:'USD'" json:"delivery_cost_russia_currency"`

	DeliveryChinaLocal          float64 `gorm:"type:decimal(18,2);default:0" json:"delivery_china_local"`
	DeliveryChinaLocalCurrency  string  `gorm:"type:varchar(3);default:'CNY'" json:"delivery_china_local_currency"`
	DeliveryRussiaLocal         float64 `gorm:"type:decimal(18,2);default:0" json:"delivery_russia_local"`
	DeliveryRussiaLocalCurrency string  `gorm:"type:varchar(3);default:'RUB'" json:"delivery_russia_local_currency"`

	Importer          string  `gorm:"type:varchar(10);not null;default:'client'" json:"importer"` // client, longan
	CommissionPercent float64 `gorm:"type:decimal(8,4);default:0" json:"commission_percent"`      // importer commission on invoice value

	Declarant         string  `gorm:"type:varchar(10);not null;default:'our'" json:"declarant"` // our, client
	CustomsCostManual float64 `gorm:"type:decimal(18,2);default:0" json:"customs_cost_manual"`  // 0 = auto schedule

	CommissionImporterUSD float64 `gorm:"column:commission_importer_usd;type:decimal(18,2);default:0" json:"commission_importer_usd"`
	SwiftUSD              float64 `gorm:"column:swift_usd;type:decimal(18,2);default:0" json:"swift_usd"`

	Rates DealRates `gorm:"embedded;embeddedPrefix:rate_" json:"rates"`

	Notes string `gorm:"type:text" json:"notes"`

	Items []DealItem `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DealItem is one product line of a deal. Items are whole-part owned by the
// deal: replaced wholesale on update, never addressed independently.
// Position preserves the display order; totals do not depend on it.
type DealItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DealID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"deal_id"`
	Position  int        `gorm:"type:int;not null;default:0" json:"position"`
	ProductID *uuid.UUID `gorm:"type:uuid;index" json:"product_id"` // nil = manual entry
	Product   *Product   `gorm:"foreignKey:ProductID" json:"-"`

	Article     string `gorm:"type:varchar(100)" json:"article"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	Photo       string `gorm:"type:text" json:"photo"`
	Tnved       string `gorm:"type:varchar(20)" json:"tnved"`
	Description string `gorm:"type:text" json:"description"`

	PriceSale     float64 `gorm:"type:decimal(18,4);default:0" json:"price_sale"`
	PriceCurrency string  `gorm:"type:varchar(3);default:'CNY'" json:"price_currency"`
	Quantity      int     `gorm:"type:int;default:0" json:"quantity"`

	DutyPercent float64 `gorm:"type:decimal(8,4);default:0" json:"duty_percent"`
	VatPercent  float64 `gorm:"type:decimal(8,4);default:0" json:"vat_percent"` // 0, 10 or 22
	Excise      float64 `gorm:"type:decimal(18,4);default:0" json:"excise"`     // flat RUB per unit
	AntiDumping float64 `gorm:"type:decimal(8,4);default:0" json:"anti_dumping"`

	// One unit: dimensions in cm, gross weight in kg.
	DimUnitL         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_unit_l"`
	DimUnitW         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_unit_w"`
	DimUnitH         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_unit_h"`
	WeightBruttoUnit float64 `gorm:"type:decimal(10,3);default:0" json:"weight_brutto_unit"`

	// One shipping package. QtyInPackage of 0 means no package data.
	DimPackageL         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_package_l"`
	DimPackageW         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_package_w"`
	DimPackageH         float64 `gorm:"type:decimal(10,2);default:0" json:"dim_package_h"`
	WeightBruttoPackage float64 `gorm:"type:decimal(10,3);default:0" json:"weight_brutto_package"`
	QtyInPackage        int     `gorm:"type:int;default:0" json:"qty_in_package"`

	// Operator overrides for computed volumetrics, m3 / kg. Positive wins.
	ManualTotalVolume float64 `gorm:"type:decimal(12,4);default:0" json:"manual_total_volume"`
	ManualTotalWeight float64 `gorm:"type:decimal(12,3);default:0" json:"manual_total_weight"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
