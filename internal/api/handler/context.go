package handler

import (
	"context"

	"github.com/lucasmontegu/outly/internal/api/middleware"
)

// GetUserID returns the authenticated user ID stored by the auth
// middleware, or an empty string for unauthenticated requests.
func GetUserID(ctx context.Context) string {
	return middleware.GetUserID(ctx)
}
