package middleware

import (
	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, apperr.Unauthorized("Not authorized to access this route"))
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			abort(c, apperr.Forbidden("You do not have permission to perform this action"))
			return
		}

		c.Next()
	}
}
