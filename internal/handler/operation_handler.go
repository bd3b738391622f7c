package handler

import (
	"net/http"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/middleware"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/service"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/pagination"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type OperationHandler struct {
	operationService service.OperationService
}

func NewOperationHandler(operationService service.OperationService) *OperationHandler {
	return &OperationHandler{operationService: operationService}
}

func (h *OperationHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	writeRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	operations := router.Group("/api/operations")
	{
		operations.GET("", anyRole, h.List)
		operations.POST("", writeRole, h.Create)
		operations.GET("/:id", anyRole, h.Get)
		operations.PUT("/:id", writeRole, h.Update)
		operations.DELETE("/:id", writeRole, h.Delete)
		operations.POST("/:id/confirm", writeRole, h.Confirm)
		operations.POST("/:id/ready", writeRole, h.MarkReady)
		operations.POST("/:id/validate", writeRole, h.Validate)
		operations.POST("/:id/cancel", writeRole, h.Cancel)
	}
}

// List returns paginated operations filtered by kind and status
// @Summary      List operations
// @Description  Retrieves a paginated list of stock operations, optionally filtered by kind and status
// @Tags         operations
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        kind    query     string  false  "Filter by kind (RECEIPT, DELIVERY, TRANSFER, ADJUSTMENT)"
// @Param        status  query     string  false  "Filter by status (DRAFT, WAITING, READY, DONE, CANCELLED)"
// @Success      200     {object}  response.Response{data=pagination.Envelope}
// @Failure      500     {object}  response.Response
// @Router       /api/operations [get]
func (h *OperationHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.OperationFilter{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	}

	operations, total, err := h.operationService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Wrap(operations, total, p)))
}

// Get returns a single operation with its lines
// @Summary      Get operation
// @Description  Retrieves an operation by ID including its lines
// @Tags         operations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Operation ID"
// @Success      200  {object}  response.Response{data=service.OperationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/operations/{id} [get]
func (h *OperationHandler) Get(c *gin.Context) {
	op, err := h.operationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, op))
}

// Create creates a draft operation
// @Summary      Create operation
// @Description  Creates a new operation in DRAFT with its lines; the reference is generated when omitted
// @Tags         operations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateOperationRequest  true  "Create Operation Payload"
// @Success      201      {object}  response.Response{data=service.OperationResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/operations [post]
func (h *OperationHandler) Create(c *gin.Context) {
	var req service.CreateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	op, err := h.operationService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, op))
}

// Update edits an operation that is not yet validated
// @Summary      Update operation
// @Description  Updates a DRAFT or WAITING operation; lines are replaced when provided. Once READY only actual_quantities is accepted
// @Tags         operations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Operation ID"
// @Param        payload  body      service.UpdateOperationRequest  true  "Update Operation Payload"
// @Success      200      {object}  response.Response{data=service.OperationResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/operations/{id} [put]
func (h *OperationHandler) Update(c *gin.Context) {
	var req service.UpdateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	op, err := h.operationService.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, op))
}

// Delete removes a draft operation
// @Summary      Delete operation
// @Description  Deletes an operation that is still in DRAFT
// @Tags         operations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Operation ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/operations/{id} [delete]
func (h *OperationHandler) Delete(c *gin.Context) {
	if err := h.operationService.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Operation deleted successfully"))
}

// Confirm moves a draft operation to WAITING
// @Summary      Confirm operation
// @Description  Transitions a DRAFT operation to WAITING after validating all references
// @Tags         operations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Operation ID"
// @Success      200  {object}  response.Response{data=service.OperationResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/operations/{id}/confirm [post]
func (h *OperationHandler) Confirm(c *gin.Context) {
	op, err := h.operationService.Confirm(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, op))
}

// MarkReady moves a waiting delivery or transfer to READY
// @Summary      Mark operation ready
// @Description  Transitions a WAITING delivery or transfer to READY once stock can be reserved
// @Tags         operations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Operation ID"
// @Success      200  {object}  response.Response{data=service.OperationResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/operations/{id}/ready [post]
func (h *OperationHandler) MarkReady(c *gin.Context) {
	op, err := h.operationService.MarkReady(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, op))
}

// Validate completes the operation and applies stock deltas atomically
// @Summary      Validate operation
// @Description  Applies all stock movements in one transaction and marks the operation DONE
// @Tags         operations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Operation ID"
// @Success      200  {object}  response.Response{data=service.OperationResponse}
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/operations/{id}/validate [post]
func (h *OperationHandler) Validate(c *gin.Context) {
	op, err := h.operationService.Validate(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, op))
}

// Cancel aborts an operation before completion
// @Summary      Cancel operation
// @Description  Cancels an operation in any non-terminal state; no stock is moved
// @Tags         operations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Operation ID"
// @Success      200  {object}  response.Response{data=service.OperationResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/operations/{id}/cancel [post]
func (h *OperationHandler) Cancel(c *gin.Context) {
	op, err := h.operationService.Cancel(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, op))
}
