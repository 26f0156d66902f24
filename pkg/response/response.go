package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
)

// MessageBody is the plain message contract shared by both bots.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON sends a payload with caching disabled.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Message responds with a bare {"message": ...} body.
func Message(c *gin.Context, status int, message string) {
	JSON(c, status, MessageBody{Message: message})
}

// Error converts err and writes its status with the message only.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	Message(c, appErr.Status, appErr.Message)
}
