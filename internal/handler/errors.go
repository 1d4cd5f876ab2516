package handler

import (
	"net/http"

	"onboarding/internal/apierr"
	"onboarding/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// writeError maps service errors onto the response envelope. Anything without an
// api code is reported as a failed save the client may retry.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	if apiErr, ok := apierr.From(err); ok {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		response.Fail(c, status, apiErr.Code, apiErr.Error())
		return
	}
	response.Fail(c, http.StatusInternalServerError, apierr.CodeSaveFailed, "save failed, retry")
}

func badRequest(c *gin.Context, msg string) {
	response.Fail(c, http.StatusBadRequest, apierr.CodeValidation, msg)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
