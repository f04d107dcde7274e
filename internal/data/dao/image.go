package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const (
	selectContents = `SELECT ` + rowmapper.ContentColumns + ` FROM image_content`
	selectMetadata = `SELECT ` + rowmapper.MetadataColumns +
		` FROM image_metadata m LEFT JOIN image_content c ON c.id = m.content_id`
)

// errNoContent rejects metadata that does not reference stored content.
var errNoContent = errors.New("image metadata without content id")

// ImageContentDAO reads and writes image payloads.
type ImageContentDAO struct{ base }

func NewImageContentDAO(tpl database.TxTemplate) *ImageContentDAO {
	return &ImageContentDAO{base{tpl: tpl}}
}

func (d *ImageContentDAO) Create(ctx context.Context, content domain.ImageContent) (domain.ImageContent, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.ImageContent, error) {
		content.ID = ensureID(content.ID)
		_, err := q.ExecContext(ctx,
			`INSERT INTO image_content (id, data, thumbnail_data) VALUES ($1, $2, $3)`,
			content.ID, content.Data, content.ThumbnailData)
		if err != nil {
			return domain.ImageContent{}, d.classify(err, "create image content %s", content.ID)
		}
		return content, nil
	})
}

func (d *ImageContentDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.ImageContent, bool, error) {
	c, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanImageContent, selectContents+` WHERE id = $1`, id)
	if err != nil {
		return c, false, fmt.Errorf("find image content %s: %w", id, err)
	}
	return c, ok, nil
}

func (d *ImageContentDAO) FindAll(ctx context.Context) ([]domain.ImageContent, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanImageContent, selectContents+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("find image contents: %w", err)
	}
	return out, nil
}

func (d *ImageContentDAO) Update(ctx context.Context, content domain.ImageContent) (domain.ImageContent, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.ImageContent, error) {
		_, err := q.ExecContext(ctx,
			`UPDATE image_content SET data = $1, thumbnail_data = $2 WHERE id = $3`,
			content.Data, content.ThumbnailData, content.ID)
		if err != nil {
			return domain.ImageContent{}, d.classify(err, "update image content %s", content.ID)
		}
		return content, nil
	})
}

// Remove deletes the payload. Metadata referencing it must be removed first.
func (d *ImageContentDAO) Remove(ctx context.Context, content domain.ImageContent) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM image_content WHERE id = $1`, content.ID); err != nil {
			return fmt.Errorf("remove image content %s: %w", content.ID, err)
		}
		return nil
	})
}

func (d *ImageContentDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM image_content`); err != nil {
			return fmt.Errorf("remove image contents: %w", err)
		}
		return nil
	})
}

// ImageMetadataDAO reads and writes image_metadata. Finders join the content
// row so returned records carry their payload.
type ImageMetadataDAO struct{ base }

func NewImageMetadataDAO(tpl database.TxTemplate) *ImageMetadataDAO {
	return &ImageMetadataDAO{base{tpl: tpl}}
}

// Create inserts md referencing md.Content.ID, which must already be stored.
// A zero CreatedDate is set to the current time.
func (d *ImageMetadataDAO) Create(ctx context.Context, md domain.ImageMetadata) (domain.ImageMetadata, error) {
	if md.Content.ID == uuid.Nil {
		return domain.ImageMetadata{}, fmt.Errorf("create image metadata for %s %s: %w", md.EntityType, md.EntityID, errNoContent)
	}
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.ImageMetadata, error) {
		md.ID = ensureID(md.ID)
		if md.CreatedDate.IsZero() {
			md.CreatedDate = time.Now()
		}
		md.CreatedDate = rowmapper.Timestamp(md.CreatedDate)
		_, err := q.ExecContext(ctx,
			`INSERT INTO image_metadata (id, entity_type, entity_id, format, content_hash, content_id, created_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			md.ID, string(md.EntityType), md.EntityID, md.Format, md.ContentHash, md.Content.ID, md.CreatedDate)
		if err != nil {
			return domain.ImageMetadata{}, d.classify(err, "create image metadata for %s %s", md.EntityType, md.EntityID)
		}
		return md, nil
	})
}

func (d *ImageMetadataDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.ImageMetadata, bool, error) {
	md, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanImageMetadata, selectMetadata+` WHERE m.id = $1`, id)
	if err != nil {
		return md, false, fmt.Errorf("find image metadata %s: %w", id, err)
	}
	return md, ok, nil
}

// FindByEntity returns the image owned by the given entity.
func (d *ImageMetadataDAO) FindByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (domain.ImageMetadata, bool, error) {
	md, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanImageMetadata,
		selectMetadata+` WHERE m.entity_type = $1 AND m.entity_id = $2`, string(entityType), entityID)
	if err != nil {
		return md, false, fmt.Errorf("find image of %s %s: %w", entityType, entityID, err)
	}
	return md, ok, nil
}

func (d *ImageMetadataDAO) FindAllByEntityIDs(ctx context.Context, entityType domain.EntityType, entityIDs []uuid.UUID) ([]domain.ImageMetadata, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	args := append([]any{string(entityType)}, idArgs(entityIDs)...)
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanImageMetadata,
		selectMetadata+` WHERE m.entity_type = $1 AND m.entity_id IN (`+placeholders(2, len(entityIDs))+`) ORDER BY m.created_date, m.id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("find images of %s: %w", entityType, err)
	}
	return out, nil
}

func (d *ImageMetadataDAO) FindAllByEntityType(ctx context.Context, entityType domain.EntityType) ([]domain.ImageMetadata, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanImageMetadata,
		selectMetadata+` WHERE m.entity_type = $1 ORDER BY m.created_date, m.id`, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("find images of %s: %w", entityType, err)
	}
	return out, nil
}

func (d *ImageMetadataDAO) FindAll(ctx context.Context) ([]domain.ImageMetadata, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanImageMetadata, selectMetadata+` ORDER BY m.created_date, m.id`)
	if err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}
	return out, nil
}

func (d *ImageMetadataDAO) Update(ctx context.Context, md domain.ImageMetadata) (domain.ImageMetadata, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.ImageMetadata, error) {
		md.CreatedDate = rowmapper.Timestamp(md.CreatedDate)
		_, err := q.ExecContext(ctx,
			`UPDATE image_metadata SET entity_type = $1, entity_id = $2, format = $3, content_hash = $4,
			 content_id = $5, created_date = $6 WHERE id = $7`,
			string(md.EntityType), md.EntityID, md.Format, md.ContentHash, md.Content.ID, md.CreatedDate, md.ID)
		if err != nil {
			return domain.ImageMetadata{}, d.classify(err, "update image metadata %s", md.ID)
		}
		return md, nil
	})
}

func (d *ImageMetadataDAO) Remove(ctx context.Context, md domain.ImageMetadata) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM image_metadata WHERE id = $1`, md.ID); err != nil {
			return fmt.Errorf("remove image metadata %s: %w", md.ID, err)
		}
		return nil
	})
}

func (d *ImageMetadataDAO) RemoveByEntityType(ctx context.Context, entityType domain.EntityType) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM image_metadata WHERE entity_type = $1`, string(entityType)); err != nil {
			return fmt.Errorf("remove images of %s: %w", entityType, err)
		}
		return nil
	})
}

func (d *ImageMetadataDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM image_metadata`); err != nil {
			return fmt.Errorf("remove images: %w", err)
		}
		return nil
	})
}
