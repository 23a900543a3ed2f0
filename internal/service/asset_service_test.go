package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/security"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func newAssetService(f *fixture, uploader *recordingUploader) *AssetService {
	return NewAssetService(f.stores, uploader, "asset-secret", 1024, zerolog.Nop())
}

func TestAssetUploadSetsLogo(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "Grace", models.RoleShopOwner).User
	store := f.createStore(t, owner, "Shop", true)
	uploader := &recordingUploader{}

	updated, err := newAssetService(f, uploader).Upload(context.Background(), owner, store.ID, AssetUpload{
		Kind:         AssetLogo,
		Body:         bytes.NewReader(pngHeader),
		DeclaredType: "image/png",
	})
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if len(uploader.keys) != 1 || !strings.HasPrefix(uploader.keys[0], "stores/1/logo/") || !strings.HasSuffix(uploader.keys[0], ".png") {
		t.Fatalf("unexpected object keys: %v", uploader.keys)
	}
	if uploader.types[0] != "image/png" {
		t.Fatalf("content type = %q", uploader.types[0])
	}

	url, sig, ok := strings.Cut(updated.Logo, "?sig=")
	if !ok || !strings.HasSuffix(url, uploader.keys[0]) {
		t.Fatalf("unexpected logo url: %q", updated.Logo)
	}
	if !security.VerifyResource("asset-secret", sig, "1", uploader.keys[0]) {
		t.Fatal("logo signature does not verify")
	}
	if updated.CoverImage != models.DefaultStoreCover {
		t.Fatalf("cover changed: %q", updated.CoverImage)
	}
}

func TestAssetUploadSanitizesSVG(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "Grace", models.RoleShopOwner).User
	store := f.createStore(t, owner, "Shop", true)
	uploader := &recordingUploader{}

	body := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script><rect/></svg>`
	if _, err := newAssetService(f, uploader).Upload(context.Background(), owner, store.ID, AssetUpload{
		Kind: AssetCover,
		Body: strings.NewReader(body),
	}); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if !strings.HasSuffix(uploader.keys[0], ".svg") || uploader.types[0] != "image/svg+xml" {
		t.Fatalf("unexpected upload: %v %v", uploader.keys, uploader.types)
	}
}

func TestAssetUploadRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "Grace", models.RoleShopOwner).User
	other := f.register(t, "Linus", models.RoleShopOwner).User
	store := f.createStore(t, owner, "Shop", true)
	svc := newAssetService(f, &recordingUploader{})

	cases := []struct {
		name   string
		actor  models.User
		input  AssetUpload
		status int
	}{
		{"not owner", other, AssetUpload{Kind: AssetLogo, Body: bytes.NewReader(pngHeader)}, http.StatusForbidden},
		{"unknown kind", owner, AssetUpload{Kind: "banner", Body: bytes.NewReader(pngHeader)}, http.StatusBadRequest},
		{"empty", owner, AssetUpload{Kind: AssetLogo, Body: bytes.NewReader(nil)}, http.StatusBadRequest},
		{"too large", owner, AssetUpload{Kind: AssetLogo, Body: bytes.NewReader(append(pngHeader, make([]byte, 2048)...))}, http.StatusBadRequest},
		{"not an image", owner, AssetUpload{Kind: AssetLogo, Body: strings.NewReader("%PDF-1.7")}, http.StatusBadRequest},
		{"type mismatch", owner, AssetUpload{Kind: AssetLogo, Body: bytes.NewReader(pngHeader), DeclaredType: "image/jpeg"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.actor, store.ID, tc.input)
			assertStatus(t, err, tc.status)
		})
	}
}

func TestAssetUploadStorageFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "Grace", models.RoleShopOwner).User
	store := f.createStore(t, owner, "Shop", true)

	_, err := newAssetService(f, &recordingUploader{err: errors.New("minio down")}).Upload(context.Background(), owner, store.ID, AssetUpload{
		Kind: AssetLogo,
		Body: bytes.NewReader(pngHeader),
	})
	assertStatus(t, err, http.StatusInternalServerError)
}
