package handler

import (
	"fmt"
	"net/http"

	"longan-backend/internal/export"
	"longan-backend/internal/middleware"
	"longan-backend/internal/service"
	"longan-backend/pkg/pagination"
	"longan-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DealHandler struct {
	dealService service.DealService
}

func NewDealHandler(dealService service.DealService) *DealHandler {
	return &DealHandler{dealService: dealService}
}

func (h *DealHandler) RegisterRoutes(router *gin.RouterGroup) {
	deals := router.Group("/api/deals")
	{
		deals.GET("", middleware.RequirePermission("deals.read"), h.ListDeals)
		deals.GET("/:id", middleware.RequirePermission("deals.read"), h.GetDeal)
		deals.GET("/:id/calculation", middleware.RequirePermission("deals.read"), h.CalculateDeal)
		deals.GET("/:id/export", middleware.RequirePermission("deals.export"), h.ExportDeal)
		deals.POST("", middleware.RequirePermission("deals.write"), h.CreateDeal)
		deals.POST("/preview", middleware.RequirePermission("deals.read"), h.PreviewDeal)
		deals.POST("/item-from-product/:productId", middleware.RequirePermission("deals.write"), h.ItemFromProduct)
		deals.PUT("/:id", middleware.RequirePermission("deals.write"), h.UpdateDeal)
		deals.DELETE("/:id", middleware.RequirePermission("deals.write"), h.DeleteDeal)
	}
}

// ListDeals returns paginated deals with optional status/search filter
// @Summary      List deals
// @Tags         deals
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        status  query     string  false  "Filter by status: draft, sent, approved, rejected"
// @Param        search  query     string  false  "Search by number, client or supplier name"
// @Success      200     {object}  response.Response
// @Router       /api/deals [get]
func (h *DealHandler) ListDeals(c *gin.Context) {
	params := pagination.Parse(c)

	deals, total, err := h.dealService.GetDeals(c.Request.Context(), c.Query("status"), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, deals, params.Page, params.Limit, total))
}

// GetDeal returns a deal with its ordered items
// @Summary      Get deal
// @Tags         deals
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Deal ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/deals/{id} [get]
func (h *DealHandler) GetDeal(c *gin.Context) {
	deal, err := h.dealService.GetDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, deal))
}

// CalculateDeal returns the full cost breakdown of a stored deal
// @Summary      Calculate deal
// @Tags         deals
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Deal ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/deals/{id}/calculation [get]
func (h *DealHandler) CalculateDeal(c *gin.Context) {
	deal, calc, err := h.dealService.CalculateDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"deal":        deal,
		"calculation": calc,
	}))
}

// PreviewDeal calculates an unsaved deal snapshot without persisting anything
// @Summary      Preview deal calculation
// @Tags         deals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.DealPayload  true  "Deal snapshot"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/deals/preview [post]
func (h *DealHandler) PreviewDeal(c *gin.Context) {
	var req service.DealPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.dealService.PreviewDeal(req)))
}

// ItemFromProduct maps a catalog card to a deal line payload with defaults
// @Summary      Deal line from product
// @Tags         deals
// @Security     BearerAuth
// @Produce      json
// @Param        productId  path  string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/deals/item-from-product/{productId} [post]
func (h *DealHandler) ItemFromProduct(c *gin.Context) {
	item, err := h.dealService.ItemFromProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// CreateDeal creates a deal, assigning a number when none was given
// @Summary      Create deal
// @Tags         deals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.DealPayload  true  "Deal payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/deals [post]
func (h *DealHandler) CreateDeal(c *gin.Context) {
	var req service.DealPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	deal, err := h.dealService.CreateDeal(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, deal))
}

// UpdateDeal updates a deal, replacing its items wholesale
// @Summary      Update deal
// @Tags         deals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "Deal ID"
// @Param        payload  body  service.DealPayload  true  "Deal payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/deals/{id} [put]
func (h *DealHandler) UpdateDeal(c *gin.Context) {
	var req service.DealPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	deal, err := h.dealService.UpdateDeal(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, deal))
}

// DeleteDeal deletes a deal (soft delete)
// @Summary      Delete deal
// @Tags         deals
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Deal ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/deals/{id} [delete]
func (h *DealHandler) DeleteDeal(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.dealService.DeleteDeal(c.Request.Context(), userID, c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Deal deleted successfully"}))
}

// ExportDeal streams the deal's quote workbook
// @Summary      Export deal to xlsx
// @Tags         deals
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id  path  string  true  "Deal ID"
// @Success      200  {file}  binary
// @Failure      404  {object}  response.Response
// @Router       /api/deals/{id}/export [get]
func (h *DealHandler) ExportDeal(c *gin.Context) {
	deal, calc, err := h.dealService.CalculateDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	data, err := export.DealWorkbook(deal, calc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	filename := fmt.Sprintf("%s.xlsx", deal.Number)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
