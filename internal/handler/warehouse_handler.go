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

type WarehouseHandler struct {
	warehouseService service.WarehouseService
}

func NewWarehouseHandler(warehouseService service.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{warehouseService: warehouseService}
}

func (h *WarehouseHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	writeRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	warehouses := router.Group("/api/warehouses")
	{
		warehouses.GET("", anyRole, h.List)
		warehouses.GET("/:id", anyRole, h.Get)
		warehouses.POST("", writeRole, h.Create)
		warehouses.PUT("/:id", writeRole, h.Update)
		warehouses.DELETE("/:id", writeRole, h.Delete)
		warehouses.GET("/:id/locations", anyRole, h.ListLocations)
		warehouses.POST("/:id/locations", writeRole, h.AddLocation)
	}

	locations := router.Group("/api/locations")
	{
		locations.DELETE("/:id", writeRole, h.DeleteLocation)
	}
}

// List returns paginated warehouses
// @Summary      List warehouses
// @Description  Retrieves a paginated list of warehouses with their locations
// @Tags         warehouses
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by warehouse name or code"
// @Success      200     {object}  response.Response{data=pagination.Envelope}
// @Failure      500     {object}  response.Response
// @Router       /api/warehouses [get]
func (h *WarehouseHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	warehouses, total, err := h.warehouseService.List(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Wrap(warehouses, total, p)))
}

// Get returns a single warehouse
// @Summary      Get warehouse
// @Description  Retrieves a warehouse by ID including its locations
// @Tags         warehouses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Warehouse ID"
// @Success      200  {object}  response.Response{data=service.WarehouseResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/warehouses/{id} [get]
func (h *WarehouseHandler) Get(c *gin.Context) {
	warehouse, err := h.warehouseService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, warehouse))
}

// Create creates a warehouse
// @Summary      Create warehouse
// @Description  Creates a new warehouse; the code must be unique
// @Tags         warehouses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateWarehouseRequest  true  "Create Warehouse Payload"
// @Success      201      {object}  response.Response{data=service.WarehouseResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/warehouses [post]
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req service.CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	warehouse, err := h.warehouseService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, warehouse))
}

// Update updates a warehouse
// @Summary      Update warehouse
// @Description  Updates an existing warehouse's name and address
// @Tags         warehouses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Warehouse ID"
// @Param        payload  body      service.UpdateWarehouseRequest  true  "Update Warehouse Payload"
// @Success      200      {object}  response.Response{data=service.WarehouseResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/warehouses/{id} [put]
func (h *WarehouseHandler) Update(c *gin.Context) {
	var req service.UpdateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	warehouse, err := h.warehouseService.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, warehouse))
}

// Delete removes a warehouse
// @Summary      Delete warehouse
// @Description  Deletes a warehouse whose locations are not referenced by any operation
// @Tags         warehouses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Warehouse ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/warehouses/{id} [delete]
func (h *WarehouseHandler) Delete(c *gin.Context) {
	if err := h.warehouseService.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Warehouse deleted successfully"))
}

// ListLocations returns a warehouse's locations
// @Summary      List locations
// @Description  Retrieves all locations of a warehouse
// @Tags         warehouses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Warehouse ID"
// @Success      200  {object}  response.Response{data=[]service.LocationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/warehouses/{id}/locations [get]
func (h *WarehouseHandler) ListLocations(c *gin.Context) {
	locations, err := h.warehouseService.ListLocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, locations))
}

// AddLocation creates a location inside a warehouse
// @Summary      Add location
// @Description  Creates a new location under the given warehouse
// @Tags         warehouses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Warehouse ID"
// @Param        payload  body      service.CreateLocationRequest  true  "Create Location Payload"
// @Success      201      {object}  response.Response{data=service.LocationResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/warehouses/{id}/locations [post]
func (h *WarehouseHandler) AddLocation(c *gin.Context) {
	var req service.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	location, err := h.warehouseService.AddLocation(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, location))
}

// DeleteLocation removes a location
// @Summary      Delete location
// @Description  Deletes a location that is not referenced by any operation
// @Tags         warehouses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Location ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/locations/{id} [delete]
func (h *WarehouseHandler) DeleteLocation(c *gin.Context) {
	if err := h.warehouseService.DeleteLocation(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Location deleted successfully"))
}
