package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const (
	maxStoreNameLength        = 50
	maxStoreDescriptionLength = 500
)

var errStoreNotFound = apperr.NotFound("Store not found")

type ThemePatch struct {
	PrimaryColor   *string `json:"primaryColor"`
	SecondaryColor *string `json:"secondaryColor"`
	FontFamily     *string `json:"fontFamily"`
}

type SettingsPatch struct {
	AllowReviews      *bool `json:"allowReviews"`
	ShowInventory     *bool `json:"showInventory"`
	EnableChatSupport *bool `json:"enableChatSupport"`
}

type AnalyticsPatch struct {
	VisitCount *int64   `json:"visitCount"`
	SalesCount *int64   `json:"salesCount"`
	Revenue    *float64 `json:"revenue"`
}

// StorePatch lists the fields an owner may change. Owner, id and analytics
// are not patchable here.
type StorePatch struct {
	Name         *string
	Description  *string
	Logo         *string
	CoverImage   *string
	ContactEmail *string
	ContactPhone *string
	Address      *models.Address
	SocialMedia  *models.SocialMedia
	IsActive     *bool
	Theme        *ThemePatch
	Settings     *SettingsPatch
}

type StoreService struct {
	stores StoreRepository
	log    zerolog.Logger
	now    func() time.Time
}

func NewStoreService(stores StoreRepository, log zerolog.Logger) *StoreService {
	return &StoreService{stores: stores, log: log, now: time.Now}
}

func (s *StoreService) Create(ctx context.Context, actor models.User, patch StorePatch) (models.Store, error) {
	store := models.Store{
		Logo:       models.DefaultStoreLogo,
		CoverImage: models.DefaultStoreCover,
		OwnerID:    actor.ID,
		IsActive:   true,
		Theme:      models.DefaultTheme(),
		Settings:   models.DefaultSettings(),
		Analytics:  models.StoreAnalytics{LastUpdated: s.now().UTC()},
	}
	applyStorePatch(&store, patch)

	if err := validateStore(store); err != nil {
		return models.Store{}, err
	}

	created, err := s.stores.Create(ctx, store)
	if err != nil {
		return models.Store{}, err
	}
	s.log.Info().Int64("store_id", created.ID).Int64("owner_id", actor.ID).Msg("store created")
	return s.reload(ctx, created)
}

// List shows admins every store, shop owners their own active stores and
// everyone else all active stores.
func (s *StoreService) List(ctx context.Context, actor models.User) ([]models.Store, error) {
	var filter repository.StoreFilter
	if actor.Role != models.RoleAdmin {
		filter.ActiveOnly = true
	}
	if actor.Role == models.RoleShopOwner {
		ownerID := actor.ID
		filter.OwnerID = &ownerID
	}
	return s.stores.List(ctx, filter)
}

// Get hides inactive stores from anyone but their owner and admins.
func (s *StoreService) Get(ctx context.Context, actor models.User, id int64) (models.Store, error) {
	store, err := s.load(ctx, id)
	if err != nil {
		return models.Store{}, err
	}
	if !store.IsActive && !canManage(actor, store) {
		return models.Store{}, errStoreNotFound
	}
	return store, nil
}

func (s *StoreService) Update(ctx context.Context, actor models.User, id int64, patch StorePatch) (models.Store, error) {
	store, err := s.loadManaged(ctx, actor, id, "Not authorized to update this store")
	if err != nil {
		return models.Store{}, err
	}
	applyStorePatch(&store, patch)
	if err := validateStore(store); err != nil {
		return models.Store{}, err
	}
	return s.save(ctx, store)
}

func (s *StoreService) Delete(ctx context.Context, actor models.User, id int64) error {
	store, err := s.loadManaged(ctx, actor, id, "Not authorized to delete this store")
	if err != nil {
		return err
	}
	if err := s.stores.Delete(ctx, store.ID); err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return errStoreNotFound
		}
		return err
	}
	s.log.Info().Int64("store_id", store.ID).Int64("actor_id", actor.ID).Msg("store deleted")
	return nil
}

func (s *StoreService) UpdateTheme(ctx context.Context, actor models.User, id int64, theme *ThemePatch) (models.Store, error) {
	store, err := s.loadManaged(ctx, actor, id, "Not authorized to update this store")
	if err != nil {
		return models.Store{}, err
	}
	if theme == nil {
		return models.Store{}, apperr.Validation("Theme data is required")
	}
	mergeTheme(&store.Theme, *theme)
	return s.save(ctx, store)
}

func (s *StoreService) UpdateSettings(ctx context.Context, actor models.User, id int64, settings *SettingsPatch) (models.Store, error) {
	store, err := s.loadManaged(ctx, actor, id, "Not authorized to update this store")
	if err != nil {
		return models.Store{}, err
	}
	if settings == nil {
		return models.Store{}, apperr.Validation("Settings data is required")
	}
	mergeSettings(&store.Settings, *settings)
	return s.save(ctx, store)
}

func (s *StoreService) Analytics(ctx context.Context, actor models.User, id int64) (models.StoreAnalytics, error) {
	store, err := s.loadManaged(ctx, actor, id, "Not authorized to view store analytics")
	if err != nil {
		return models.StoreAnalytics{}, err
	}
	return store.Analytics, nil
}

func (s *StoreService) UpdateAnalytics(ctx context.Context, actor models.User, id int64, analytics *AnalyticsPatch) (models.StoreAnalytics, error) {
	store, err := s.loadManaged(ctx, actor, id, "Not authorized to update store analytics")
	if err != nil {
		return models.StoreAnalytics{}, err
	}
	if analytics == nil {
		return models.StoreAnalytics{}, apperr.Validation("Analytics data is required")
	}

	if analytics.VisitCount != nil {
		store.Analytics.VisitCount = *analytics.VisitCount
	}
	if analytics.SalesCount != nil {
		store.Analytics.SalesCount = *analytics.SalesCount
	}
	if analytics.Revenue != nil {
		store.Analytics.Revenue = *analytics.Revenue
	}
	store.Analytics.LastUpdated = s.now().UTC()

	saved, err := s.save(ctx, store)
	if err != nil {
		return models.StoreAnalytics{}, err
	}
	return saved.Analytics, nil
}

func (s *StoreService) load(ctx context.Context, id int64) (models.Store, error) {
	store, err := s.stores.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return models.Store{}, errStoreNotFound
		}
		return models.Store{}, err
	}
	return store, nil
}

func (s *StoreService) loadManaged(ctx context.Context, actor models.User, id int64, denied string) (models.Store, error) {
	store, err := s.load(ctx, id)
	if err != nil {
		return models.Store{}, err
	}
	if !canManage(actor, store) {
		return models.Store{}, apperr.Forbidden(denied)
	}
	return store, nil
}

func (s *StoreService) save(ctx context.Context, store models.Store) (models.Store, error) {
	saved, err := s.stores.Update(ctx, store)
	if err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return models.Store{}, errStoreNotFound
		}
		return models.Store{}, err
	}
	if saved.Owner == nil {
		saved.Owner = store.Owner
	}
	return saved, nil
}

func (s *StoreService) reload(ctx context.Context, store models.Store) (models.Store, error) {
	loaded, err := s.stores.GetByID(ctx, store.ID)
	if err != nil {
		s.log.Warn().Err(err).Int64("store_id", store.ID).Msg("reload store failed")
		return store, nil
	}
	return loaded, nil
}

func canManage(actor models.User, store models.Store) bool {
	return actor.Role == models.RoleAdmin || store.OwnerID == actor.ID
}

func applyStorePatch(store *models.Store, patch StorePatch) {
	if patch.Name != nil {
		store.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		store.Description = *patch.Description
	}
	if patch.Logo != nil {
		store.Logo = *patch.Logo
	}
	if patch.CoverImage != nil {
		store.CoverImage = *patch.CoverImage
	}
	if patch.ContactEmail != nil {
		store.ContactEmail = strings.ToLower(strings.TrimSpace(*patch.ContactEmail))
	}
	if patch.ContactPhone != nil {
		store.ContactPhone = *patch.ContactPhone
	}
	if patch.Address != nil {
		store.Address = *patch.Address
	}
	if patch.SocialMedia != nil {
		store.SocialMedia = *patch.SocialMedia
	}
	if patch.IsActive != nil {
		store.IsActive = *patch.IsActive
	}
	if patch.Theme != nil {
		mergeTheme(&store.Theme, *patch.Theme)
	}
	if patch.Settings != nil {
		mergeSettings(&store.Settings, *patch.Settings)
	}
}

func mergeTheme(theme *models.StoreTheme, patch ThemePatch) {
	if patch.PrimaryColor != nil {
		theme.PrimaryColor = *patch.PrimaryColor
	}
	if patch.SecondaryColor != nil {
		theme.SecondaryColor = *patch.SecondaryColor
	}
	if patch.FontFamily != nil {
		theme.FontFamily = *patch.FontFamily
	}
}

func mergeSettings(settings *models.StoreSettings, patch SettingsPatch) {
	if patch.AllowReviews != nil {
		settings.AllowReviews = *patch.AllowReviews
	}
	if patch.ShowInventory != nil {
		settings.ShowInventory = *patch.ShowInventory
	}
	if patch.EnableChatSupport != nil {
		settings.EnableChatSupport = *patch.EnableChatSupport
	}
}

func validateStore(store models.Store) error {
	switch {
	case store.Name == "":
		return apperr.Validation("Please provide a store name")
	case utf8.RuneCountInString(store.Name) > maxStoreNameLength:
		return apperr.Validation("Store name cannot be more than 50 characters")
	case strings.TrimSpace(store.Description) == "":
		return apperr.Validation("Please provide a store description")
	case utf8.RuneCountInString(store.Description) > maxStoreDescriptionLength:
		return apperr.Validation("Description cannot be more than 500 characters")
	}
	return nil
}
