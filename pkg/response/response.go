package response

import "github.com/gin-gonic/gin"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"` // machine readable error code
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithCode is Error plus a machine readable code the client can switch on
func ErrorWithCode(statusCode int, code, err string) Response {
	res := Error(statusCode, err)
	res.Code = code
	return res
}

// OK writes data in the success envelope
func OK(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Success(statusCode, data))
}

// Fail writes a coded error envelope
func Fail(c *gin.Context, statusCode int, code, msg string) {
	c.JSON(statusCode, ErrorWithCode(statusCode, code, msg))
}

// Abort is Fail for middleware: the remaining handlers are skipped
func Abort(c *gin.Context, statusCode int, code, msg string) {
	c.AbortWithStatusJSON(statusCode, ErrorWithCode(statusCode, code, msg))
}
