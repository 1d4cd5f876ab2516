package handler

import (
	"net/http"
	"time"

	"onboarding/internal/middleware"
	"onboarding/internal/service"
	"onboarding/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService     service.AuthService
	employeeService service.EmployeeService
	secureCookies   bool
}

func NewAuthHandler(authService service.AuthService, employeeService service.EmployeeService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, employeeService: employeeService, secureCookies: secureCookies}
}

// RegisterRoutes binds the public authentication endpoints
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/admin/login", h.AdminLogin)
		auth.POST("/employee/login", h.EmployeeLogin)
		auth.POST("/logout", h.Logout)
	}
}

// AdminLogin handles POST /auth/admin/login
// @Summary      Administrator login
// @Description  Checks the configured administrator credentials and returns a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AdminLoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req service.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	token, err := h.authService.AdminLogin(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetTokenCookie(c, token.Token, maxAge(token.ExpiresAt), h.secureCookies)
	response.OK(c, http.StatusOK, token)
}

// EmployeeLogin handles POST /auth/employee/login
// @Summary      Employee welcome login
// @Description  Matches CPF, job position and company against the registered employee. Failures carry CPF_NOT_FOUND, USER_BLOCKED, JOB_MISMATCH or COMPANY_MISMATCH.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.EmployeeLoginRequest  true  "Welcome form"
// @Success      200      {object}  response.Response{data=service.EmployeeLoginResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/auth/employee/login [post]
func (h *AuthHandler) EmployeeLogin(c *gin.Context) {
	var req service.EmployeeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	res, err := h.employeeService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetTokenCookie(c, res.Token.Token, maxAge(res.Token.ExpiresAt), h.secureCookies)
	response.OK(c, http.StatusOK, res)
}

// Logout handles POST /auth/logout
// @Summary      Logout
// @Description  Clears the access token cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, h.secureCookies)
	response.OK(c, http.StatusOK, gin.H{"message": "logged out"})
}

func maxAge(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
