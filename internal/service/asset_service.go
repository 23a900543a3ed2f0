package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/ids"
	"storefront/internal/media/sniffer"
	"storefront/internal/media/svg"
	"storefront/internal/models"
	"storefront/internal/security"
)

type AssetKind string

const (
	AssetLogo  AssetKind = "logo"
	AssetCover AssetKind = "cover"
)

type AssetUpload struct {
	Kind         AssetKind
	Body         io.Reader
	DeclaredType string
}

// AssetService stores store logos and cover images in object storage.
type AssetService struct {
	stores        *StoreService
	uploader      AssetUploader
	signingSecret string
	maxBytes      int64
	log           zerolog.Logger
}

func NewAssetService(stores *StoreService, uploader AssetUploader, signingSecret string, maxBytes int64, log zerolog.Logger) *AssetService {
	return &AssetService{
		stores:        stores,
		uploader:      uploader,
		signingSecret: signingSecret,
		maxBytes:      maxBytes,
		log:           log,
	}
}

func (s *AssetService) Upload(ctx context.Context, actor models.User, storeID int64, input AssetUpload) (models.Store, error) {
	if input.Kind != AssetLogo && input.Kind != AssetCover {
		return models.Store{}, apperr.Validation("Unknown asset kind")
	}
	if input.Body == nil {
		return models.Store{}, apperr.Validation("File is required")
	}

	store, err := s.stores.loadManaged(ctx, actor, storeID, "Not authorized to update this store")
	if err != nil {
		return models.Store{}, err
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return models.Store{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return models.Store{}, apperr.Validation("Empty file")
	}
	if int64(len(data)) > s.maxBytes {
		return models.Store{}, apperr.Validation("File too large")
	}

	detected, err := sniffer.Detect(data, input.DeclaredType)
	switch {
	case errors.Is(err, sniffer.ErrUnknownType):
		return models.Store{}, apperr.Validation("Unsupported image type")
	case errors.Is(err, sniffer.ErrTypeMismatch):
		return models.Store{}, apperr.Validation(fmt.Sprintf("Content type mismatch: declared %s, actual %s", input.DeclaredType, detected.MIME))
	case err != nil:
		return models.Store{}, err
	}

	if detected.Type == sniffer.TypeSVG {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return models.Store{}, apperr.Validation("Invalid SVG document")
		}
		data = clean
	}

	storeKey := strconv.FormatInt(store.ID, 10)
	objectKey := path.Join("stores", storeKey, string(input.Kind), ids.New()+"."+detected.Ext())

	url, err := s.uploader.PutAsset(ctx, objectKey, bytes.NewReader(data), int64(len(data)), detected.MIME)
	if err != nil {
		return models.Store{}, fmt.Errorf("put asset: %w", err)
	}
	url += "?sig=" + security.SignResource(s.signingSecret, storeKey, objectKey)

	switch input.Kind {
	case AssetLogo:
		store.Logo = url
	case AssetCover:
		store.CoverImage = url
	}

	saved, err := s.stores.save(ctx, store)
	if err != nil {
		return models.Store{}, err
	}
	s.log.Info().
		Int64("store_id", store.ID).
		Str("kind", string(input.Kind)).
		Str("object", objectKey).
		Msg("store asset uploaded")
	return saved, nil
}
