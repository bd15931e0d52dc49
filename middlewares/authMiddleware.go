package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"gorm.io/gorm"
)

// AuthMiddleware resolves the bearer credential to a profile and attaches
// the identity (id, name, raw + normalized role) to the request context.
// Requests without a credential pass through; the role gate rejects them.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		profile, err := models.GetProfileCached(c.Request.Context(), db, customClaim.ID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if profile.IsActive != nil && !*profile.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user is disabled"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetUserIdInContext(ctx, profile.ID)
		ctx = utils.SetUserNameInContext(ctx, profile.FullName)
		ctx = utils.SetRawRoleInContext(ctx, profile.Role)

		role, ok := models.ParseRole(profile.Role)
		if ok {
			ctx = utils.SetRoleInContext(ctx, string(role))
			ctx = utils.SetIsSuperadminInContext(ctx, role.IsSuperuser())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
