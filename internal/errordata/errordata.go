package errordata

import (
	"context"
)

type key struct{}

var errorDataKey key

// ErrorData carries the real cause of a failed request to the request
// logger while the client only sees a generic message.
type ErrorData struct {
	Message string
	Status  int
}

func WithErrorData(ctx context.Context) context.Context {
	return context.WithValue(ctx, errorDataKey, &ErrorData{})
}

func GetErrorData(ctx context.Context) *ErrorData {
	ed, ok := ctx.Value(errorDataKey).(*ErrorData)
	if !ok {
		return nil
	}
	return ed
}

func (ed *ErrorData) Set(status int, msg string) {
	ed.Status = status
	ed.Message = msg
}

func (ed *ErrorData) HasMessage() bool {
	return ed.Message != ""
}
