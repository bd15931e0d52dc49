package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
)

// Authorize checks the resolved identity's role against an allowed set.
// Superadmin passes implicitly. Unresolved identity is Unauthenticated;
// a resolved identity outside the set is Forbidden, carrying the raw role,
// normalized role and allowed set for observability.
func Authorize(ctx context.Context, allowed ...models.Role) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return utils.ErrorUnauthenticated
	}

	if isSuper, ok := utils.GetIsSuperadminFromContext(ctx); ok && isSuper {
		return nil
	}

	rawRole, _ := utils.GetRawRoleFromContext(ctx)
	roleStr, _ := utils.GetRoleFromContext(ctx)
	role, ok := models.ParseRole(roleStr)
	if ok {
		for _, a := range allowed {
			if role == a {
				return nil
			}
		}
	}

	allowedNames := make([]string, 0, len(allowed))
	for _, a := range allowed {
		allowedNames = append(allowedNames, string(a))
	}
	return &utils.ForbiddenError{
		RawRole:        rawRole,
		NormalizedRole: roleStr,
		Allowed:        allowedNames,
	}
}

// RequireRoles gates a route group on the allowed role set.
func RequireRoles(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := Authorize(c.Request.Context(), allowed...); err != nil {
			if err == utils.ErrorUnauthenticated {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			} else {
				c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
