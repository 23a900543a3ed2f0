package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service"
)

const invalidUserID = "Invalid user ID format"

func (h HandlerSet) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, toUserResponse(user))
}

type updateProfileRequest struct {
	Name *string `json:"name"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.services.Users.UpdateProfile(c.Request.Context(), user.ID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toUserResponse(updated))
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.services.Users.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		items = append(items, toUserResponse(user))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.services.Users.Create(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.UserRole(req.Role),
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, toUserResponse(user))
}

func (h HandlerSet) GetUser(c *gin.Context) {
	id, ok := pathID(c, invalidUserID)
	if !ok {
		return
	}

	user, err := h.services.Users.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toUserResponse(user))
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, invalidUserID)
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	update := repository.UserUpdate{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		update.Role = &role
	}

	user, err := h.services.Users.Update(c.Request.Context(), id, update)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toUserResponse(user))
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidUserID)
	if !ok {
		return
	}

	if err := h.services.Users.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "User deleted successfully", nil)
}
