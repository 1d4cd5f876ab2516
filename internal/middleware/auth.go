package middleware

import (
	"net/http"
	"strings"

	"onboarding/internal/apierr"
	"onboarding/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenCookie = "access_token"

	ctxUserID   = "userID"
	ctxUserRole = "userRole"
	ctxUserName = "userName"
)

// SetTokenCookie stores the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, token string, maxAge int, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, token, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the access token cookie
func ClearTokenCookie(c *gin.Context, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", secure, true)
}

// RequireRole validates the JWT (cookie first, then Bearer header) and checks that its
// role claim is one of allowedRoles
func RequireRole(secret []byte, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, cookieErr := c.Cookie(accessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				abort(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Authorization is missing")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				abort(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'")
				return
			}
			tokenString = parts[1]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, http.StatusUnauthorized, apierr.CodeUnauthorized, "Invalid token claims")
			return
		}

		userRole, ok := claims["role"].(string)
		if !ok {
			abort(c, http.StatusForbidden, apierr.CodeForbidden, "Role not found in token")
			return
		}

		roleAllowed := false
		for _, role := range allowedRoles {
			if userRole == role {
				roleAllowed = true
				break
			}
		}
		if !roleAllowed {
			abort(c, http.StatusForbidden, apierr.CodeForbidden, "Access denied: insufficient permissions")
			return
		}

		sub, _ := claims["sub"].(string)
		name, _ := claims["name"].(string)
		c.Set(ctxUserID, sub)
		c.Set(ctxUserRole, userRole)
		c.Set(ctxUserName, name)

		c.Next()
	}
}

// UserID returns the sub claim set by RequireRole
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// UserName returns the display name claim, falling back to the subject
func UserName(c *gin.Context) string {
	if name := c.GetString(ctxUserName); name != "" {
		return name
	}
	return c.GetString(ctxUserID)
}

func abort(c *gin.Context, status int, code, msg string) {
	response.Abort(c, status, code, msg)
}
