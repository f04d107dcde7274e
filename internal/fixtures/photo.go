package fixtures

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"rococodb/internal/blob"
	"rococodb/pkg/domain"
)

const dataURLPrefix = "data:"

// PhotoLoader reads original photos from a blob store and turns them into
// data URLs, the representation the files database stores.
type PhotoLoader struct {
	store  blob.Store
	prefix string
}

// NewPhotoLoader reads keys under prefix from store.
func NewPhotoLoader(store blob.Store, prefix string) *PhotoLoader {
	return &PhotoLoader{store: store, prefix: prefix}
}

// Names lists the photos available under the loader prefix, without the
// prefix, ordered by key.
func (l *PhotoLoader) Names(ctx context.Context) ([]string, error) {
	infos, err := l.store.List(ctx, l.prefix)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, strings.TrimPrefix(info.Key, l.prefix))
	}
	return names, nil
}

// Load returns the photo name as a base64 data URL. The media type comes from
// the stored content type when it names an image, else from the extension.
func (l *PhotoLoader) Load(ctx context.Context, name string) (string, error) {
	info, rc, err := l.store.Get(ctx, l.prefix+name)
	if err != nil {
		return "", fmt.Errorf("load photo %s: %w", name, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read photo %s: %w", name, err)
	}
	return DataURL(mediaType(name, info.ContentType), raw), nil
}

func mediaType(name, contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	ext := strings.ToLower(path.Ext(name))
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
		return mt
	}
	return "image/" + strings.TrimPrefix(ext, ".")
}

// DataURL renders raw as a base64 data URL of the given media type.
func DataURL(mediaType string, raw []byte) string {
	return dataURLPrefix + mediaType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// ImageFormat returns the image subtype of a data URL, e.g. "png" for
// data:image/png;base64,....
func ImageFormat(dataURL string) (string, error) {
	header, _, ok := strings.Cut(dataURL, ";")
	if !ok || !strings.HasPrefix(header, dataURLPrefix) {
		return "", fmt.Errorf("photo is not a data URL")
	}
	_, subtype, ok := strings.Cut(strings.TrimPrefix(header, dataURLPrefix), "/")
	if !ok || subtype == "" {
		return "", fmt.Errorf("photo data URL has no media subtype")
	}
	return subtype, nil
}

// ContentHash is the unpadded base64 SHA-256 of the data URL, matching the
// hash the files service records.
func ContentHash(dataURL string) string {
	sum := sha256.Sum256([]byte(dataURL))
	return base64.RawStdEncoding.EncodeToString(sum[:])
}

// NewImage builds the files records for a photo owned by the given entity.
// The thumbnail carries the original data.
func NewImage(entityType domain.EntityType, entityID uuid.UUID, dataURL string) (domain.ImageMetadata, error) {
	format, err := ImageFormat(dataURL)
	if err != nil {
		return domain.ImageMetadata{}, err
	}
	data := []byte(dataURL)
	return domain.ImageMetadata{
		EntityType:  entityType,
		EntityID:    entityID,
		Format:      format,
		ContentHash: ContentHash(dataURL),
		Content: domain.ImageContent{
			Data:          data,
			ThumbnailData: data,
		},
	}, nil
}
