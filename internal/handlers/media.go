package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/media/sniffer"
	"storefront/internal/service"
)

func (h HandlerSet) UploadStoreLogo(c *gin.Context) {
	h.uploadStoreAsset(c, service.AssetLogo)
}

func (h HandlerSet) UploadStoreCover(c *gin.Context) {
	h.uploadStoreAsset(c, service.AssetCover)
}

func (h HandlerSet) uploadStoreAsset(c *gin.Context, kind service.AssetKind) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, invalidStoreID)
	if !ok {
		return
	}
	if h.services.Assets == nil {
		fail(c, apperr.Internal("Asset storage is not configured", nil))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, apperr.Validation("File is required"))
		return
	}
	defer file.Close()

	store, err := h.services.Assets.Upload(c.Request.Context(), actor, id, service.AssetUpload{
		Kind:         kind,
		Body:         file,
		DeclaredType: sniffer.MimeTypeFromHTTP(http.Header(header.Header)),
	})
	if err != nil {
		h.log.Warn().Err(err).Int64("user_id", actor.ID).Int64("store_id", id).Str("kind", string(kind)).Msg("asset upload failed")
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, toStoreResponse(store))
}
