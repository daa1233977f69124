package mockapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dhruv2494/mocktail-engine/internal/api"
)

// contextKeyRequestID is the Gin context key for the request ID.
const contextKeyRequestID = "request_id"

// response mirrors the production envelope so the client exercises the same
// decode path against the mock as against the real backend.
type response struct {
	Data     interface{}    `json:"data"`
	Error    *api.ErrorBody `json:"error,omitempty"`
	Metadata api.Metadata   `json:"metadata"`
}

// requestIDMiddleware generates a unique request ID for every request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(contextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

func success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, response{
		Data:     data,
		Metadata: buildMetadata(c),
	})
}

func fail(c *gin.Context, statusCode int, code api.ErrCode, message string) {
	c.JSON(statusCode, response{
		Error:    &api.ErrorBody{Code: code, Message: message},
		Metadata: buildMetadata(c),
	})
}

func buildMetadata(c *gin.Context) api.Metadata {
	reqID, _ := c.Get(contextKeyRequestID)
	id, ok := reqID.(string)
	if !ok || id == "" {
		id = uuid.New().String()
	}
	return api.Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
