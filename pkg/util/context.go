package util

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type key string

const (
	requestIDKey = key("x-request-id")
	accountIDKey = key("account-id")
)

// WithRequestID returns a context with a request id.
// It will generate a new request id if the provided id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return context.WithValue(ctx, requestIDKey, generate())
	}

	return context.WithValue(ctx, requestIDKey, id)
}

// WithAccountID returns a context with an account id.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// GetRequestID returns request id from context.
// will return empty string if not present
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetAccountID returns account id from context.
// will return empty string if not present
func GetAccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}

// generate returns a ulid string to use as request id
func generate() string {
	return ulid.Make().String()
}
