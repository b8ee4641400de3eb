package auth

import (
	"net/http"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

// AttachRoleFromStore re-resolves the caller's role from the user record so a
// role change takes effect before the token expires. Falls back to the claim
// role when the user row is gone (e.g. freshly seeded dev databases).
func AttachRoleFromStore(store lms.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := IdentityFromContext(ctx)
			if id.UserID == "" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if u, err := store.GetUser(ctx, id.UserID); err == nil && u.Role != "" {
				id.Role = u.Role
				ctx = WithIdentity(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
