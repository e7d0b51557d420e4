package cli

import (
	"context"
	"time"
)

func withStart(ctx context.Context, t time.Time) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, commandStartKey{}, t)
}

func startFrom(ctx context.Context) (time.Time, bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	t, ok := ctx.Value(commandStartKey{}).(time.Time)
	return t, ok
}
