package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/service"
)

const resetPasswordPath = "/api/v1/auth/reset-password/"

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.services.Auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.UserRole(req.Role),
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	respond(c, http.StatusCreated, authResponse{Token: result.AccessToken, User: toUserResponse(result.User)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.services.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	respond(c, http.StatusOK, authResponse{Token: result.AccessToken, User: toUserResponse(result.User)})
}

func (h HandlerSet) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(h.cfg.Security.RefreshCookie)

	result, err := h.services.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	respond(c, http.StatusOK, gin.H{"token": result.AccessToken})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cfg.Security.RefreshCookie); err == nil && token != "" {
		h.services.Auth.Logout(c.Request.Context(), token)
	}

	h.clearRefreshCookie(c)
	respondMessage(c, http.StatusOK, "Logged out successfully", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type forgotPasswordResponse struct {
	ResetURL  string    `json:"resetUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.services.Auth.ForgotPassword(c.Request.Context(), req.Email, h.resetURLPrefix(c))
	if err != nil {
		fail(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Password reset email sent", forgotPasswordResponse{
		ResetURL:  result.ResetURL,
		ExpiresAt: result.ExpiresAt,
	})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.services.Auth.ResetPassword(c.Request.Context(), c.Param("resetToken"), req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	respond(c, http.StatusOK, authResponse{Token: result.AccessToken, User: toUserResponse(result.User)})
}

func (h HandlerSet) setRefreshCookie(c *gin.Context, result service.AuthResult) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		h.cfg.Security.RefreshCookie,
		result.RefreshToken,
		int(result.RefreshTTL.Seconds()),
		"/",
		"",
		h.cfg.IsProduction(),
		true,
	)
}

func (h HandlerSet) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.Security.RefreshCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
}

func (h HandlerSet) resetURLPrefix(c *gin.Context) string {
	if base := strings.TrimSuffix(h.cfg.Mail.PublicBaseURL, "/"); base != "" {
		return base + resetPasswordPath
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	} else if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + resetPasswordPath
}
