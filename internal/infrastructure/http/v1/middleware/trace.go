package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appctx "landregistry/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
)

// Saga middleware opens the correlation context for a request. Every request
// gets a fresh transaction id: if the handler starts a saga, all messages it
// produces carry this id end to end.
func Saga() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		saga := appctx.NewSagaContext(c.GetHeader(HeaderUserID))
		saga.RequestID = requestID

		ctx := appctx.WithSaga(c.Request.Context(), saga)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Set("transaction_id", saga.TransactionID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}
