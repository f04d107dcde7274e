package repository

import (
	"context"

	"github.com/google/uuid"

	"rococodb/internal/data/dao"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

// FilesRepository stores image metadata together with its content.
type FilesRepository struct {
	tpl      database.TxTemplate
	metadata *dao.ImageMetadataDAO
	contents *dao.ImageContentDAO
}

func NewFilesRepository(tpl database.TxTemplate) *FilesRepository {
	return &FilesRepository{
		tpl:      tpl,
		metadata: dao.NewImageMetadataDAO(tpl),
		contents: dao.NewImageContentDAO(tpl),
	}
}

// Create stores md.Content, then the metadata referencing it.
func (r *FilesRepository) Create(ctx context.Context, md domain.ImageMetadata) (domain.ImageMetadata, error) {
	return database.Execute(ctx, r.tpl, func(ctx context.Context, _ database.Queryer) (domain.ImageMetadata, error) {
		content, err := r.contents.Create(ctx, md.Content)
		if err != nil {
			return domain.ImageMetadata{}, err
		}
		md.Content = content
		return r.metadata.Create(ctx, md)
	})
}

// Update replaces the content, then the metadata.
func (r *FilesRepository) Update(ctx context.Context, md domain.ImageMetadata) (domain.ImageMetadata, error) {
	return database.Execute(ctx, r.tpl, func(ctx context.Context, _ database.Queryer) (domain.ImageMetadata, error) {
		content, err := r.contents.Update(ctx, md.Content)
		if err != nil {
			return domain.ImageMetadata{}, err
		}
		md.Content = content
		return r.metadata.Update(ctx, md)
	})
}

// Remove deletes the metadata row, then its content. The content id is taken
// from the stored row.
func (r *FilesRepository) Remove(ctx context.Context, md domain.ImageMetadata) error {
	return r.tpl.Run(ctx, func(ctx context.Context, _ database.Queryer) error {
		stored, ok, err := r.metadata.FindByID(ctx, md.ID)
		if err != nil || !ok {
			return err
		}
		if err := r.metadata.Remove(ctx, stored); err != nil {
			return err
		}
		return r.contents.Remove(ctx, stored.Content)
	})
}

func (r *FilesRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.ImageMetadata, bool, error) {
	return r.metadata.FindByID(ctx, id)
}

func (r *FilesRepository) FindByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (domain.ImageMetadata, bool, error) {
	return r.metadata.FindByEntity(ctx, entityType, entityID)
}

func (r *FilesRepository) FindAllByEntityIDs(ctx context.Context, entityType domain.EntityType, entityIDs []uuid.UUID) ([]domain.ImageMetadata, error) {
	return r.metadata.FindAllByEntityIDs(ctx, entityType, entityIDs)
}

func (r *FilesRepository) FindAll(ctx context.Context) ([]domain.ImageMetadata, error) {
	return r.metadata.FindAll(ctx)
}

// RemoveAll empties metadata, then content.
func (r *FilesRepository) RemoveAll(ctx context.Context) error {
	return r.tpl.Run(ctx, func(ctx context.Context, _ database.Queryer) error {
		if err := r.metadata.RemoveAll(ctx); err != nil {
			return err
		}
		return r.contents.RemoveAll(ctx)
	})
}

// RemoveAllByEntityType deletes every image owned by entities of entityType
// along with its content.
func (r *FilesRepository) RemoveAllByEntityType(ctx context.Context, entityType domain.EntityType) error {
	return r.tpl.Run(ctx, func(ctx context.Context, _ database.Queryer) error {
		images, err := r.metadata.FindAllByEntityType(ctx, entityType)
		if err != nil {
			return err
		}
		if err := r.metadata.RemoveByEntityType(ctx, entityType); err != nil {
			return err
		}
		for _, md := range images {
			if err := r.contents.Remove(ctx, md.Content); err != nil {
				return err
			}
		}
		return nil
	})
}
