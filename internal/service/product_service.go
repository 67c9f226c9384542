package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"longan-backend/internal/model"
	"longan-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type ProductPayload struct {
	Article     string   `json:"article" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Photo       string   `json:"photo"`
	Tnved       string   `json:"tnved"`
	Description string   `json:"description"`
	SupplierID  string   `json:"supplier_id"`
	PriceSale   float64  `json:"price_sale" binding:"min=0"`
	// Blank currency means CNY when the card is pulled into a deal
	PriceCurrency string   `json:"price_currency" binding:"omitempty,oneof=CNY USD RUB"`
	DutyPercent   float64  `json:"duty_percent" binding:"min=0"`
	VatPercent    *float64 `json:"vat_percent"`
	Excise        float64  `json:"excise" binding:"min=0"`
	AntiDumping   float64  `json:"anti_dumping" binding:"min=0"`

	DimUnitL         float64 `json:"dim_unit_l" binding:"min=0"`
	DimUnitW         float64 `json:"dim_unit_w" binding:"min=0"`
	DimUnitH         float64 `json:"dim_unit_h" binding:"min=0"`
	WeightBruttoUnit float64 `json:"weight_brutto_unit" binding:"min=0"`

	DimPackageL         float64 `json:"dim_package_l" binding:"min=0"`
	DimPackageW         float64 `json:"dim_package_w" binding:"min=0"`
	DimPackageH         float64 `json:"dim_package_h" binding:"min=0"`
	WeightBruttoPackage float64 `json:"weight_brutto_package" binding:"min=0"`
	QtyInPackage        int     `json:"qty_in_package" binding:"min=0"`
}

type ProductResponse struct {
	ID          string `json:"id"`
	Article     string `json:"article"`
	Name        string `json:"name"`
	Photo       string `json:"photo"`
	Tnved       string `json:"tnved"`
	Description string `json:"description"`
	SupplierID  string `json:"supplier_id"`

	PriceSale     float64 `json:"price_sale"`
	PriceCurrency string  `json:"price_currency"`

	DutyPercent float64  `json:"duty_percent"`
	VatPercent  *float64 `json:"vat_percent"`
	Excise      float64  `json:"excise"`
	AntiDumping float64  `json:"anti_dumping"`

	DimUnitL         float64 `json:"dim_unit_l"`
	DimUnitW         float64 `json:"dim_unit_w"`
	DimUnitH         float64 `json:"dim_unit_h"`
	WeightBruttoUnit float64 `json:"weight_brutto_unit"`

	DimPackageL         float64 `json:"dim_package_l"`
	DimPackageW         float64 `json:"dim_package_w"`
	DimPackageH         float64 `json:"dim_package_h"`
	WeightBruttoPackage float64 `json:"weight_brutto_package"`
	QtyInPackage        int     `json:"qty_in_package"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProductService interface {
	GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, userID string, req ProductPayload) (ProductResponse, error)
	UpdateProduct(ctx context.Context, userID string, id string, req ProductPayload) (ProductResponse, error)
	DeleteProduct(ctx context.Context, userID string, id string) error
}

type productService struct {
	productRepo repository.ProductRepository
	partnerRepo repository.PartnerRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	partnerRepo repository.PartnerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo: productRepo,
		partnerRepo: partnerRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

func (s *productService) GetProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}

	return res, total, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, errors.New("product not found")
		}
		return ProductResponse{}, fmt.Errorf("database error: %w", err)
	}

	return toProductResponse(*product), nil
}

func (s *productService) CreateProduct(ctx context.Context, userID string, req ProductPayload) (ProductResponse, error) {
	product := model.Product{}
	if err := s.applyPayload(ctx, &product, req); err != nil {
		return ProductResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		return nil
	})

	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, userID string, id string, req ProductPayload) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, errors.New("product not found")
		}
		return ProductResponse{}, fmt.Errorf("database error: %w", err)
	}

	if err := s.applyPayload(ctx, product, req); err != nil {
		return ProductResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionUpdateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})

	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(*product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, userID string, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("product not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}

		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// applyPayload copies request fields onto the model, resolving the supplier
// reference when one is supplied.
func (s *productService) applyPayload(ctx context.Context, product *model.Product, req ProductPayload) error {
	if req.SupplierID != "" {
		sid, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return fmt.Errorf("invalid supplier_id: %w", err)
		}
		supplier, err := s.partnerRepo.FindByID(ctx, sid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("supplier not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if supplier.Type == model.PartnerTypeClient {
			return errors.New("partner is not a supplier")
		}
		product.SupplierID = &sid
	} else {
		product.SupplierID = nil
	}

	if req.VatPercent != nil && (*req.VatPercent < 0 || *req.VatPercent > 100) {
		return errors.New("vat_percent must be between 0 and 100")
	}

	product.Article = req.Article
	product.Name = req.Name
	product.Photo = req.Photo
	product.Tnved = req.Tnved
	product.Description = req.Description
	product.PriceSale = req.PriceSale
	product.PriceCurrency = req.PriceCurrency
	product.DutyPercent = req.DutyPercent
	product.VatPercent = req.VatPercent
	product.Excise = req.Excise
	product.AntiDumping = req.AntiDumping
	product.DimUnitL = req.DimUnitL
	product.DimUnitW = req.DimUnitW
	product.DimUnitH = req.DimUnitH
	product.WeightBruttoUnit = req.WeightBruttoUnit
	product.DimPackageL = req.DimPackageL
	product.DimPackageW = req.DimPackageW
	product.DimPackageH = req.DimPackageH
	product.WeightBruttoPackage = req.WeightBruttoPackage
	product.QtyInPackage = req.QtyInPackage

	return nil
}

func toProductResponse(p model.Product) ProductResponse {
	supplierID := ""
	if p.SupplierID != nil {
		supplierID = p.SupplierID.String()
	}

	return ProductResponse{
		ID:                  p.ID.String(),
		Article:             p.Article,
		Name:                p.Name,
		Photo:               p.Photo,
		Tnved:               p.Tnved,
		Description:         p.Description,
		SupplierID:          supplierID,
		PriceSale:           p.PriceSale,
		PriceCurrency:       p.PriceCurrency,
		DutyPercent:         p.DutyPercent,
		VatPercent:          p.VatPercent,
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
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
