package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Failure is the error body returned by every failing endpoint. Error carries
// the closed error-kind text, never a raw vendor payload.
type Failure struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// OK sends a 200 JSON response with the given body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Message sends a 200 response with a message body.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Token sends a 200 response with a token body.
func Token(c *gin.Context, token string) {
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// BadRequest sends 400 with a message (client misuse, no error kind).
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Failure{Message: message})
}

// Fail sends an error response with a message and the error-kind text.
func Fail(c *gin.Context, status int, message string, err error) {
	body := Failure{Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	c.JSON(status, body)
}
