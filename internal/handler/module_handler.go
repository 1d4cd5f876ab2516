package handler

import (
	"net/http"
	"strconv"

	"onboarding/internal/middleware"
	"onboarding/internal/service"
	"onboarding/pkg/response"

	"github.com/gin-gonic/gin"
)

// ModuleHandler serves catalog administration and the catalog event log
type ModuleHandler struct {
	moduleService service.ModuleService
	secret        []byte
}

func NewModuleHandler(moduleService service.ModuleService, secret []byte) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService, secret: secret}
}

func (h *ModuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin", middleware.RequireRole(h.secret, service.RoleAdmin))
	{
		admin.GET("/modules", h.ListModules)
		admin.GET("/modules/:id", h.GetModule)
		admin.POST("/modules", h.CreateModule)
		admin.PUT("/modules/order", h.ReorderModules)
		admin.PATCH("/modules/:id", h.UpdateModule)
		admin.DELETE("/modules/:id", h.DeleteModule)

		admin.GET("/catalog-events", h.ListEvents)
	}
}

// ListModules handles GET /admin/modules
// @Summary      List catalog modules
// @Description  Full catalog ordered by position, including answer keys
// @Tags         modules
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Module}
// @Router       /api/admin/modules [get]
func (h *ModuleHandler) ListModules(c *gin.Context) {
	modules, err := h.moduleService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, modules)
}

// GetModule handles GET /admin/modules/:id
// @Summary      Get module
// @Tags         modules
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Module ID"
// @Success      200  {object}  response.Response{data=model.Module}
// @Failure      404  {object}  response.Response
// @Router       /api/admin/modules/{id} [get]
func (h *ModuleHandler) GetModule(c *gin.Context) {
	module, err := h.moduleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, module)
}

// CreateModule handles POST /admin/modules
// @Summary      Add module
// @Description  Appends a module at the end of the catalog and notifies connected clients
// @Tags         modules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateModuleRequest  true  "Module"
// @Success      201      {object}  response.Response{data=model.Module}
// @Failure      400      {object}  response.Response
// @Router       /api/admin/modules [post]
func (h *ModuleHandler) CreateModule(c *gin.Context) {
	var req service.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	module, err := h.moduleService.Create(c.Request.Context(), middleware.UserName(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, module)
}

// UpdateModule handles PATCH /admin/modules/:id
// @Summary      Update module
// @Description  Partial update; omitted fields are unchanged
// @Tags         modules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Module ID"
// @Param        payload  body      service.UpdateModuleRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Module}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/admin/modules/{id} [patch]
func (h *ModuleHandler) UpdateModule(c *gin.Context) {
	var req service.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	module, err := h.moduleService.Update(c.Request.Context(), middleware.UserName(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, module)
}

// DeleteModule handles DELETE /admin/modules/:id
// @Summary      Delete module
// @Tags         modules
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Module ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/admin/modules/{id} [delete]
func (h *ModuleHandler) DeleteModule(c *gin.Context) {
	if err := h.moduleService.Delete(c.Request.Context(), middleware.UserName(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "module deleted"})
}

// ReorderModules handles PUT /admin/modules/order
// @Summary      Reorder catalog
// @Description  Takes every module id in the new order; positions are renumbered from 1
// @Tags         modules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ReorderModulesRequest  true  "New order"
// @Success      200      {object}  response.Response{data=[]model.Module}
// @Failure      400      {object}  response.Response
// @Router       /api/admin/modules/order [put]
func (h *ModuleHandler) ReorderModules(c *gin.Context) {
	var req service.ReorderModulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	modules, err := h.moduleService.Reorder(c.Request.Context(), middleware.UserName(c), req.ModuleIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, modules)
}

// ListEvents handles GET /admin/catalog-events
// @Summary      Catalog change log
// @Description  Events with seq greater than since, oldest first
// @Tags         modules
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     int  false  "Last seq seen"
// @Param        limit  query     int  false  "Max events (500)"
// @Success      200    {object}  response.Response{data=[]realtime.Message}
// @Router       /api/admin/catalog-events [get]
func (h *ModuleHandler) ListEvents(c *gin.Context) {
	since, err := strconv.ParseUint(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		badRequest(c, "since must be a non-negative integer")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))

	events, err := h.moduleService.EventsSince(c.Request.Context(), since, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, events)
}
