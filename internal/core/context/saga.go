package context

import (
	"context"

	"github.com/google/uuid"
)

// SagaContext carries the correlation identifiers for one saga execution.
// Every message published or consumed on behalf of a business transaction
// carries the same TransactionID end to end.
type SagaContext struct {
	TransactionID string
	RequestID     string
	UserID        string
}

type sagaContextKey struct{}

// WithSaga adds SagaContext to context.
func WithSaga(ctx context.Context, saga *SagaContext) context.Context {
	return context.WithValue(ctx, sagaContextKey{}, saga)
}

// GetSaga returns SagaContext from context.
func GetSaga(ctx context.Context) *SagaContext {
	if v, ok := ctx.Value(sagaContextKey{}).(*SagaContext); ok {
		return v
	}
	return nil
}

// GetTransactionID returns the correlation id from context or empty string.
func GetTransactionID(ctx context.Context) string {
	if s := GetSaga(ctx); s != nil {
		return s.TransactionID
	}
	return ""
}

// GetUserID returns the acting user from context or empty string.
func GetUserID(ctx context.Context) string {
	if s := GetSaga(ctx); s != nil {
		return s.UserID
	}
	return ""
}

// NewSagaContext creates a SagaContext with a freshly generated transaction id.
func NewSagaContext(userID string) *SagaContext {
	return &SagaContext{
		TransactionID: uuid.New().String(),
		RequestID:     uuid.New().String(),
		UserID:        userID,
	}
}
