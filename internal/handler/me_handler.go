package handler

import (
	"net/http"

	"onboarding/internal/apierr"
	"onboarding/internal/middleware"
	"onboarding/internal/service"
	"onboarding/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MeHandler serves the employee portal: module sequence and stage sessions
type MeHandler struct {
	employeeService service.EmployeeService
	progressService service.ProgressService
	sessionService  service.SessionService
	secret          []byte
}

func NewMeHandler(
	employeeService service.EmployeeService,
	progressService service.ProgressService,
	sessionService service.SessionService,
	secret []byte,
) *MeHandler {
	return &MeHandler{
		employeeService: employeeService,
		progressService: progressService,
		sessionService:  sessionService,
		secret:          secret,
	}
}

func (h *MeHandler) RegisterRoutes(router *gin.RouterGroup) {
	me := router.Group("/me", middleware.RequireRole(h.secret, service.RoleEmployee))
	{
		me.GET("", h.GetMe)
		me.GET("/modules", h.ListModules)

		me.POST("/sessions", h.StartSession)
		me.GET("/sessions/:id", h.GetSession)
		me.POST("/sessions/:id/video-finished", h.FinishVideo)
		me.POST("/sessions/:id/quiz", h.SubmitQuiz)
		me.POST("/sessions/:id/retry", h.Retry)
	}
}

type startSessionRequest struct {
	ModuleID string `json:"module_id" binding:"required"`
}

// GetMe handles GET /me
// @Summary      Current employee
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.EmployeeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *MeHandler) GetMe(c *gin.Context) {
	id, ok := currentEmployee(c)
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

// ListModules handles GET /me/modules
// @Summary      Employee module sequence
// @Description  Modules assigned to the employee's job position, ordered, with lock and completion state
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ModuleViewResponse}
// @Router       /api/me/modules [get]
func (h *MeHandler) ListModules(c *gin.Context) {
	id, ok := currentEmployee(c)
	if !ok {
		return
	}
	modules, err := h.progressService.Modules(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, modules)
}

// StartSession handles POST /me/sessions
// @Summary      Start a module session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      startSessionRequest  true  "Module to start"
// @Success      201      {object}  response.Response{data=service.SessionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/me/sessions [post]
func (h *MeHandler) StartSession(c *gin.Context) {
	id, ok := currentEmployee(c)
	if !ok {
		return
	}
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	sess, err := h.sessionService.Start(c.Request.Context(), id, req.ModuleID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, sess)
}

// GetSession handles GET /me/sessions/:id
// @Summary      Session state
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=service.SessionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/me/sessions/{id} [get]
func (h *MeHandler) GetSession(c *gin.Context) {
	id, ok := currentEmployee(c)
	if !ok {
		return
	}
	h.sessionResult(c, func() (*service.SessionResponse, error) {
		return h.sessionService.Get(c.Request.Context(), id, c.Param("id"))
	})
}

// FinishVideo handles POST /me/sessions/:id/video-finished
// @Summary      Video finished
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=service.SessionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/me/sessions/{id}/video-finished [post]
func (h *MeHandler) FinishVideo(c *gin.Context) {
	id, ok := currentEmployee(c)
	if !ok {
		return
	}
	h.sessionResult(c, func() (*service.SessionResponse, error) {
		return h.sessionService.FinishVideo(c.Request.Context(), id, c.Param("id"))
	})
}

// SubmitQuiz handles POST /me/sessions/:id/quiz
// @Summary      Submit quiz answers
// @Description  A pass completes the module; repeated failures send the employee back to the video
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Session ID"
// @Param        payload  body      service.SubmitQuizRequest  true  "Answers"
// @Success      200      {object}  response.Response{data=service.SessionResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/me/sessions/{id}/quiz [post]
func (h *MeHandler) SubmitQuiz(c *gin.Context) {
	id, ok := currentEmployee(c)
	if !ok {
		return
	}
	var req service.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	h.sessionResult(c, func() (*service.SessionResponse, error) {
		return h.sessionService.SubmitQuiz(c.Request.Context(), id, c.Param("id"), req.Answers)
	})
}

// Retry handles POST /me/sessions/:id/retry
// @Summary      Retry the quiz after a failure
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=service.SessionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/me/sessions/{id}/retry [post]
func (h *MeHandler) Retry(c *gin.Context) {
	id, ok := currentEmployee(c)
	if !ok {
		return
	}
	h.sessionResult(c, func() (*service.SessionResponse, error) {
		return h.sessionService.Retry(c.Request.Context(), id, c.Param("id"))
	})
}

func (h *MeHandler) sessionResult(c *gin.Context, call func() (*service.SessionResponse, error)) {
	sess, err := call()
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusOK, sess)
}

func currentEmployee(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.UserID(c))
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Invalid employee id in token")
		return uuid.Nil, false
	}
	return id, true
}
