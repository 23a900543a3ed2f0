package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/security"
	"storefront/internal/service"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Auth   *service.AuthService
	Users  *service.UserService
	Roles  *service.RoleService
	Stores *service.StoreService
	Assets *service.AssetService
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	tokens   *security.TokenIssuer
	users    middleware.UserLookup
	services Services
	checks   map[string]HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, tokens *security.TokenIssuer, users middleware.UserLookup, services Services, checks map[string]HealthCheck) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		tokens:   tokens,
		users:    users,
		services: services,
		checks:   checks,
	}
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	authenticated := middleware.Auth(h.tokens, h.users)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh-token", h.RefreshToken)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.PUT("/reset-password/:resetToken", h.ResetPassword)
		auth.POST("/logout", h.Logout)
	}

	users := v1.Group("/users", authenticated)
	{
		users.GET("/profile", h.GetProfile)
		users.PUT("/profile", h.UpdateProfile)

		users.GET("", adminOnly, h.ListUsers)
		users.POST("", adminOnly, h.CreateUser)
		users.GET("/:id", adminOnly, h.GetUser)
		users.PUT("/:id", adminOnly, h.UpdateUser)
		users.DELETE("/:id", adminOnly, h.DeleteUser)
	}

	roles := v1.Group("/roles", authenticated, adminOnly)
	{
		roles.GET("", h.ListRoles)
		roles.POST("", h.CreateRole)
		roles.PUT("/:name", h.UpdateRole)
		roles.DELETE("/:name", h.DeleteRole)
	}

	stores := v1.Group("/stores", authenticated)
	{
		stores.GET("", h.ListStores)
		stores.POST("", middleware.RequireRoles(models.RoleShopOwner, models.RoleAdmin), h.CreateStore)
		stores.GET("/:id", h.GetStore)
		stores.PUT("/:id", h.UpdateStore)
		stores.DELETE("/:id", h.DeleteStore)
		stores.PUT("/:id/theme", h.UpdateStoreTheme)
		stores.PUT("/:id/settings", h.UpdateStoreSettings)
		stores.GET("/:id/analytics", h.GetStoreAnalytics)
		stores.PUT("/:id/analytics", h.UpdateStoreAnalytics)
		stores.PUT("/:id/logo", h.UploadStoreLogo)
		stores.PUT("/:id/cover", h.UploadStoreCover)
	}
}

// Welcome answers GET / outside the API prefix.
func (h HandlerSet) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the E-commerce API"})
}

func (h HandlerSet) NotFound(c *gin.Context) {
	fail(c, apperr.NotFound("Route not found"))
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

// fail hands err to middleware.Errors.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Validation(bindingMessage(err)))
		return false
	}
	return true
}

func bindingMessage(err error) string {
	if errors.Is(err, io.EOF) {
		return "Request body is missing"
	}
	return "Invalid request body: " + err.Error()
}

func pathID(c *gin.Context, invalid string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, apperr.Validation(invalid))
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperr.Unauthorized("Not authorized to access this route"))
	}
	return user, ok
}
