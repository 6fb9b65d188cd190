package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	messageSuccess = "success"
	codeOK         = 0
	codeBadRequest = 1
)

// Resp is the envelope around every JSON reply.
type Resp struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Resp{ErrorCode: codeOK, Message: messageSuccess, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	code := status
	if status == http.StatusBadRequest {
		code = codeBadRequest
	}
	c.AbortWithStatusJSON(status, Resp{ErrorCode: code, Message: message})
}
