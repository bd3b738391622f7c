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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.List)
}

// List returns paginated audit log entries
// @Summary      List audit logs
// @Description  Retrieves a paginated audit trail, optionally filtered by action, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        action  query     string  false  "Filter by action, e.g. VALIDATE_OPERATION"
// @Success      200     {object}  response.Response{data=pagination.Envelope}
// @Failure      500     {object}  response.Response
// @Router       /api/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.auditService.List(c.Request.Context(), c.Query("action"), p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Wrap(logs, total, p)))
}
