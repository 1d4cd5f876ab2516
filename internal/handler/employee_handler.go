package handler

import (
	"bytes"
	"net/http"

	"onboarding/internal/apierr"
	"onboarding/internal/middleware"
	"onboarding/internal/service"
	"onboarding/pkg/pagination"
	"onboarding/pkg/response"

	"github.com/gin-gonic/gin"
)

// EmployeeHandler serves employee administration and the CSV export
type EmployeeHandler struct {
	employeeService service.EmployeeService
	progressService service.ProgressService
	exportService   service.ExportService
	secret          []byte
}

func NewEmployeeHandler(
	employeeService service.EmployeeService,
	progressService service.ProgressService,
	exportService service.ExportService,
	secret []byte,
) *EmployeeHandler {
	return &EmployeeHandler{
		employeeService: employeeService,
		progressService: progressService,
		exportService:   exportService,
		secret:          secret,
	}
}

func (h *EmployeeHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin", middleware.RequireRole(h.secret, service.RoleAdmin))
	{
		admin.GET("/employees", h.ListEmployees)
		admin.GET("/employees/stats", h.Stats)
		admin.POST("/employees", h.RegisterEmployee)
		admin.GET("/employees/:id", h.GetEmployee)
		admin.PATCH("/employees/:id", h.UpdateEmployee)
		admin.DELETE("/employees/:id", h.DeleteEmployee)
		admin.POST("/employees/:id/toggle-block", h.ToggleBlock)
		admin.POST("/employees/:id/absence", h.RecordAbsence)
		admin.GET("/employees/:id/history", h.History)
		admin.GET("/employees/:id/progress", h.Progress)

		admin.GET("/export.csv", h.ExportCSV)
	}
}

// ListEmployees handles GET /admin/employees
// @Summary      List employees
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size"
// @Param        search  query     string  false  "Name or CPF fragment"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/admin/employees [get]
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	p := pagination.Parse(c)
	employees, total, err := h.employeeService.List(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, p.Wrap(employees, total))
}

// RegisterEmployee handles POST /admin/employees
// @Summary      Register employee
// @Description  Creates the employee with the registration module completed. Duplicate CPF returns CPF_ALREADY_EXISTS.
// @Tags         employees
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RegisterEmployeeRequest  true  "Employee"
// @Success      201      {object}  response.Response{data=service.EmployeeResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/admin/employees [post]
func (h *EmployeeHandler) RegisterEmployee(c *gin.Context) {
	var req service.RegisterEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	employee, err := h.employeeService.Register(c.Request.Context(), middleware.UserName(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, employee)
}

// GetEmployee handles GET /admin/employees/:id
// @Summary      Get employee
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Employee ID"
// @Success      200  {object}  response.Response{data=service.EmployeeResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/admin/employees/{id} [get]
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	employee, err := h.employeeService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, employee)
}

// UpdateEmployee handles PATCH /admin/employees/:id
// @Summary      Edit employee
// @Description  Partial update; changed fields are recorded in history as EDIÇÃO
// @Tags         employees
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Employee ID"
// @Param        payload  body      service.UpdateEmployeeRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.EmployeeResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/admin/employees/{id} [patch]
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	employee, err := h.employeeService.Update(c.Request.Context(), middleware.UserName(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, employee)
}

// DeleteEmployee handles DELETE /admin/employees/:id
// @Summary      Delete employee
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Employee ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/admin/employees/{id} [delete]
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.employeeService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "employee deleted"})
}

// ToggleBlock handles POST /admin/employees/:id/toggle-block
// @Summary      Block or unblock
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Employee ID"
// @Success      200  {object}  response.Response{data=service.EmployeeResponse}
// @Router       /api/admin/employees/{id}/toggle-block [post]
func (h *EmployeeHandler) ToggleBlock(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	employee, err := h.employeeService.ToggleBlock(c.Request.Context(), middleware.UserName(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, employee)
}

// RecordAbsence handles POST /admin/employees/:id/absence
// @Summary      Justify absence
// @Description  Records the reason as AUSÊNCIA and blocks the employee
// @Tags         employees
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Employee ID"
// @Param        payload  body      service.AbsenceRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=service.EmployeeResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/admin/employees/{id}/absence [post]
func (h *EmployeeHandler) RecordAbsence(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req service.AbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "absence reason is required")
		return
	}
	employee, err := h.employeeService.RecordAbsence(c.Request.Context(), middleware.UserName(c), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, employee)
}

// History handles GET /admin/employees/:id/history
// @Summary      Employee history
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Employee ID"
// @Success      200  {object}  response.Response{data=[]model.HistoryRecord}
// @Router       /api/admin/employees/{id}/history [get]
func (h *EmployeeHandler) History(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	records, err := h.employeeService.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, records)
}

// Progress handles GET /admin/employees/:id/progress
// @Summary      Employee progress
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Employee ID"
// @Success      200  {object}  response.Response{data=service.EmployeeProgressResponse}
// @Router       /api/admin/employees/{id}/progress [get]
func (h *EmployeeHandler) Progress(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	overview, err := h.progressService.Overview(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, overview)
}

// Stats handles GET /admin/employees/stats
// @Summary      Onboarding counters
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=repository.EmployeeStats}
// @Router       /api/admin/employees/stats [get]
func (h *EmployeeHandler) Stats(c *gin.Context) {
	stats, err := h.employeeService.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, stats)
}

// ExportCSV handles GET /admin/export.csv
// @Summary      Export employees as CSV
// @Description  With from and to (YYYY-MM-DD) only employees who finished inside the inclusive range are exported
// @Tags         employees
// @Produce      text/csv
// @Security     BearerAuth
// @Param        from  query     string  false  "First day"
// @Param        to    query     string  false  "Last day"
// @Success      200   {file}    file
// @Failure      404   {object}  response.Response
// @Router       /api/admin/export.csv [get]
func (h *EmployeeHandler) ExportCSV(c *gin.Context) {
	rng, err := h.exportService.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	rows, err := h.exportService.WriteCSV(c.Request.Context(), &buf, rng)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == 0 {
		response.Fail(c, http.StatusNotFound, apierr.CodeNotFound, "Nenhum funcionário encontrado no período selecionado.")
		return
	}

	filename := "funcionarios.csv"
	if rng != nil {
		filename = "funcionarios_" + rng.From.Format("2006-01-02") + "_" + rng.To.Format("2006-01-02") + ".csv"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
