package auth

import (
	"context"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

type ctxKey struct{}

var ctxKeyIdentity = ctxKey{}

func WithIdentity(ctx context.Context, id lms.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) lms.Identity {
	if v := ctx.Value(ctxKeyIdentity); v != nil {
		if id, ok := v.(lms.Identity); ok {
			return id
		}
	}
	return lms.Identity{}
}
