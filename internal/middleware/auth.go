package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/security"
)

const currentUserKey = "current_user"

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (models.User, error)
}

// Auth resolves the bearer access token to a stored user and attaches it to
// the request.
func Auth(tokens *security.TokenIssuer, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			abort(c, apperr.Unauthorized("Not authorized to access this route"))
			return
		}

		claims, err := tokens.ParseAccess(strings.TrimSpace(tokenStr))
		if err != nil {
			abort(c, apperr.Unauthorized("Not authorized to access this route"))
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				abort(c, apperr.NotFound("User not found"))
				return
			}
			abort(c, apperr.Internal("Server Error", err))
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
