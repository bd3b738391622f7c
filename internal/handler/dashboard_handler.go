package handler

import (
	"net/http"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/middleware"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/service"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/dashboard", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.Summary)
}

// Summary returns aggregated dashboard data
// @Summary      Dashboard summary
// @Description  Retrieves operation counts, today's schedule, low-stock alerts and recent movements; cached for 60 seconds
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.DashboardSummary}
// @Failure      500  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
