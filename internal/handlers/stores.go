package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/service"
)

const invalidStoreID = "Invalid store ID format"

type storeOwnerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type storeResponse struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Logo         string                `json:"logo"`
	CoverImage   string                `json:"coverImage"`
	OwnerID      int64                 `json:"ownerId"`
	Owner        *storeOwnerResponse   `json:"owner,omitempty"`
	ContactEmail string                `json:"contactEmail,omitempty"`
	ContactPhone string                `json:"contactPhone,omitempty"`
	Address      models.Address        `json:"address"`
	SocialMedia  models.SocialMedia    `json:"socialMedia"`
	IsActive     bool                  `json:"isActive"`
	Theme        models.StoreTheme     `json:"theme"`
	Settings     models.StoreSettings  `json:"settings"`
	Analytics    models.StoreAnalytics `json:"analytics"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

func toStoreResponse(store models.Store) storeResponse {
	resp := storeResponse{
		ID:           store.ID,
		Name:         store.Name,
		Description:  store.Description,
		Logo:         store.Logo,
		CoverImage:   store.CoverImage,
		OwnerID:      store.OwnerID,
		ContactEmail: store.ContactEmail,
		ContactPhone: store.ContactPhone,
		Address:      store.Address,
		SocialMedia:  store.SocialMedia,
		IsActive:     store.IsActive,
		Theme:        store.Theme,
		Settings:     store.Settings,
		Analytics:    store.Analytics,
		CreatedAt:    store.CreatedAt,
		UpdatedAt:    store.UpdatedAt,
	}
	if store.Owner != nil {
		resp.Owner = &storeOwnerResponse{ID: store.Owner.ID, Name: store.Owner.Name, Email: store.Owner.Email}
	}
	return resp
}

// storeRequest carries the writable store fields. Unknown keys such as owner
// or analytics are ignored.
type storeRequest struct {
	Name         *string                `json:"name"`
	Description  *string                `json:"description"`
	Logo         *string                `json:"logo"`
	CoverImage   *string                `json:"coverImage"`
	ContactEmail *string                `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone *string                `json:"contactPhone"`
	Address      *models.Address        `json:"address"`
	SocialMedia  *models.SocialMedia    `json:"socialMedia"`
	IsActive     *bool                  `json:"isActive"`
	Theme        *service.ThemePatch    `json:"theme"`
	Settings     *service.SettingsPatch `json:"settings"`
}

func (r storeRequest) patch() service.StorePatch {
	return service.StorePatch{
		Name:         r.Name,
		Description:  r.Description,
		Logo:         r.Logo,
		CoverImage:   r.CoverImage,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Address:      r.Address,
		SocialMedia:  r.SocialMedia,
		IsActive:     r.IsActive,
		Theme:        r.Theme,
		Settings:     r.Settings,
	}
}

func (h HandlerSet) CreateStore(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req storeRequest
	if !bindJSON(c, &req) {
		return
	}

	store, err := h.services.Stores.Create(c.Request.Context(), actor, req.patch())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, toStoreResponse(store))
}

func (h HandlerSet) ListStores(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	stores, err := h.services.Stores.List(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}

	items := make([]storeResponse, 0, len(stores))
	for _, store := range stores {
		items = append(items, toStoreResponse(store))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

func (h HandlerSet) GetStore(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}

	store, err := h.services.Stores.Get(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toStoreResponse(store))
}

func (h HandlerSet) UpdateStore(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}
	var req storeRequest
	if !bindJSON(c, &req) {
		return
	}

	store, err := h.services.Stores.Update(c.Request.Context(), actor, id, req.patch())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toStoreResponse(store))
}

func (h HandlerSet) DeleteStore(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}

	if err := h.services.Stores.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Store deleted successfully", nil)
}

type themeRequest struct {
	Theme *service.ThemePatch `json:"theme"`
}

func (h HandlerSet) UpdateStoreTheme(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}
	var req themeRequest
	if !bindJSON(c, &req) {
		return
	}

	store, err := h.services.Stores.UpdateTheme(c.Request.Context(), actor, id, req.Theme)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toStoreResponse(store))
}

type settingsRequest struct {
	Settings *service.SettingsPatch `json:"settings"`
}

func (h HandlerSet) UpdateStoreSettings(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}
	var req settingsRequest
	if !bindJSON(c, &req) {
		return
	}

	store, err := h.services.Stores.UpdateSettings(c.Request.Context(), actor, id, req.Settings)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toStoreResponse(store))
}

func (h HandlerSet) GetStoreAnalytics(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}

	analytics, err := h.services.Stores.Analytics(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, analytics)
}

type analyticsRequest struct {
	Analytics *service.AnalyticsPatch `json:"analytics"`
}

func (h HandlerSet) UpdateStoreAnalytics(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}
	var req analyticsRequest
	if !bindJSON(c, &req) {
		return
	}

	analytics, err := h.services.Stores.UpdateAnalytics(c.Request.Context(), actor, id, req.Analytics)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, analytics)
}
