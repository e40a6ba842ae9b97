package requestdata

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type key struct{}

var requestDataKey key

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

type RequestData struct {
	RequestID uuid.UUID
	StartedAt time.Time
	Trigger   string
}

// RequestIDFrom returns the request id stored in ctx, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	rd := GetRequestData(ctx)
	if rd == nil || rd.RequestID == uuid.Nil {
		return ""
	}
	return rd.RequestID.String()
}
