package handler

import (
	"net/http"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/middleware"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/service"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/pagination"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stockService service.StockService
}

func NewStockHandler(stockService service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)

	stock := router.Group("/api/stock")
	{
		stock.GET("/level", anyRole, h.GetLevel)
		stock.GET("/products/:id", anyRole, h.ProductAvailability)
		stock.GET("/locations/:id", anyRole, h.ListByLocation)
		stock.GET("/products/:id/ledger", anyRole, h.Ledger)
		stock.GET("/alerts", anyRole, h.Alerts)
	}
}

// GetLevel returns the quantity of one product at one location
// @Summary      Get stock level
// @Description  Retrieves the on-hand quantity for a product at a location; missing rows read as zero
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        product_id   query     string  true  "Product ID"
// @Param        location_id  query     string  true  "Location ID"
// @Success      200          {object}  response.Response{data=service.StockLevelResponse}
// @Failure      400          {object}  response.Response
// @Router       /api/stock/level [get]
func (h *StockHandler) GetLevel(c *gin.Context) {
	level, err := h.stockService.GetLevel(c.Request.Context(), c.Query("product_id"), c.Query("location_id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, level))
}

// ProductAvailability returns per-location stock for a product
// @Summary      Get product availability
// @Description  Retrieves a product's total stock and its breakdown across locations
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductAvailabilityResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/stock/products/{id} [get]
func (h *StockHandler) ProductAvailability(c *gin.Context) {
	availability, err := h.stockService.ProductAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, availability))
}

// ListByLocation returns all stock levels at a location
// @Summary      List stock by location
// @Description  Retrieves every product quantity held at the given location
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Location ID"
// @Success      200  {object}  response.Response{data=[]service.StockLevelResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/stock/locations/{id} [get]
func (h *StockHandler) ListByLocation(c *gin.Context) {
	levels, err := h.stockService.ListByLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, levels))
}

// Ledger returns the movement history of a product
// @Summary      Get stock ledger
// @Description  Retrieves the paginated movement history for a product, newest first
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Product ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Envelope}
// @Failure      400    {object}  response.Response
// @Router       /api/stock/products/{id}/ledger [get]
func (h *StockHandler) Ledger(c *gin.Context) {
	p := pagination.Parse(c)
	entries, total, err := h.stockService.Ledger(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Wrap(entries, total, p)))
}

// Alerts returns products at or below their reorder point
// @Summary      List stock alerts
// @Description  Retrieves products whose total stock is at or below the reorder point or minimum level
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProductAvailabilityResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/stock/alerts [get]
func (h *StockHandler) Alerts(c *gin.Context) {
	products, err := h.stockService.LowStockProducts(c.Request.Context())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}
