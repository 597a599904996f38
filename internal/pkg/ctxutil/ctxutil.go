package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestDataKey contextKey = "request_data"

// RequestData carries the authenticated requester identity through a request.
type RequestData struct {
	UserID uuid.UUID
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey).(*RequestData)
	return rd
}
