package handler

import (
	"net/http"

	"longan-backend/internal/middleware"
	"longan-backend/internal/service"
	"longan-backend/pkg/pagination"
	"longan-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RateHandler struct {
	rateService service.RateService
}

func NewRateHandler(rateService service.RateService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

func (h *RateHandler) RegisterRoutes(router *gin.RouterGroup) {
	rates := router.Group("/api/rates")
	{
		rates.GET("", middleware.RequirePermission("rates.read"), h.ListRates)
		rates.GET("/latest", middleware.RequirePermission("rates.read"), h.LatestRates)
		rates.POST("", middleware.RequirePermission("rates.write"), h.StoreRate)
		rates.POST("/refresh", middleware.RequirePermission("rates.write"), h.RefreshRates)
	}
}

// ListRates returns paginated stored reference rates
// @Summary      List reference rates
// @Tags         rates
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default: 1)"
// @Param        limit     query     int     false  "Items per page (default: 20)"
// @Param        currency  query     string  false  "Filter by currency: USD, CNY"
// @Success      200       {object}  response.Response
// @Router       /api/rates [get]
func (h *RateHandler) ListRates(c *gin.Context) {
	params := pagination.Parse(c)

	rates, total, err := h.rateService.GetRates(c.Request.Context(), c.Query("currency"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rates, params.Page, params.Limit, total))
}

// LatestRates returns the newest stored USD and CNY reference rates
// @Summary      Latest reference rates
// @Tags         rates
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/rates/latest [get]
func (h *RateHandler) LatestRates(c *gin.Context) {
	rates, err := h.rateService.GetLatestRates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rates))
}

// StoreRate stores a manually entered reference rate
// @Summary      Store reference rate
// @Tags         rates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.StoreRateRequest  true  "Rate payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/rates [post]
func (h *RateHandler) StoreRate(c *gin.Context) {
	var req service.StoreRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	rate, err := h.rateService.StoreRate(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rate))
}

// RefreshRates pulls today's CBR bulletin and stores its USD/CNY quotes
// @Summary      Refresh rates from the CBR feed
// @Tags         rates
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/rates/refresh [post]
func (h *RateHandler) RefreshRates(c *gin.Context) {
	userID := c.GetString("userID")
	rates, err := h.rateService.RefreshFromFeed(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rates))
}
