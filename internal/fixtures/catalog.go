package fixtures

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rococodb/pkg/domain"
)

// Artist is a stored artist and its portrait.
type Artist struct {
	domain.Artist
	Photo *domain.ImageMetadata
}

// Museum is a stored museum and its photo.
type Museum struct {
	domain.Museum
	Photo *domain.ImageMetadata
}

// Painting is a stored painting and its image.
type Painting struct {
	domain.Painting
	Photo *domain.ImageMetadata
}

// CreateArtist stores artist, then its portrait when photo is set.
func (h *Harness) CreateArtist(ctx context.Context, artist domain.Artist, photo string) (Artist, error) {
	if err := checkPhoto(photo); err != nil {
		return Artist{}, err
	}
	artists, err := h.Artists(ctx)
	if err != nil {
		return Artist{}, err
	}
	created, undo, err := create(ctx, h, "artist", artists.Create, artists.Remove, artist)
	if err != nil {
		return Artist{}, err
	}
	md, err := h.attachPhoto(ctx, undo, domain.EntityArtist, created.ID, photo)
	if err != nil {
		return Artist{}, err
	}
	h.logger.Info("artist created", "name", created.Name, "id", created.ID)
	return Artist{Artist: created, Photo: md}, nil
}

// CreateMuseum stores museum, then its photo when photo is set. A museum
// naming a country checks that the country exists first.
func (h *Harness) CreateMuseum(ctx context.Context, museum domain.Museum, photo string) (Museum, error) {
	if err := checkPhoto(photo); err != nil {
		return Museum{}, err
	}
	if museum.CountryID.Valid {
		countries, err := h.Countries(ctx)
		if err != nil {
			return Museum{}, err
		}
		if _, ok, err := countries.FindByID(ctx, museum.CountryID.UUID); err != nil {
			return Museum{}, err
		} else if !ok {
			return Museum{}, notFound("country", museum.CountryID.UUID)
		}
	}
	museums, err := h.Museums(ctx)
	if err != nil {
		return Museum{}, err
	}
	created, undo, err := create(ctx, h, "museum", museums.Create, museums.Remove, museum)
	if err != nil {
		return Museum{}, err
	}
	md, err := h.attachPhoto(ctx, undo, domain.EntityMuseum, created.ID, photo)
	if err != nil {
		return Museum{}, err
	}
	h.logger.Info("museum created", "title", created.Title, "id", created.ID)
	return Museum{Museum: created, Photo: md}, nil
}

// CreatePainting checks that the artist and the museum exist, stores
// painting, then its image when photo is set.
func (h *Harness) CreatePainting(ctx context.Context, painting domain.Painting, photo string) (Painting, error) {
	if err := checkPhoto(photo); err != nil {
		return Painting{}, err
	}
	artists, err := h.Artists(ctx)
	if err != nil {
		return Painting{}, err
	}
	if _, ok, err := artists.FindByID(ctx, painting.ArtistID); err != nil {
		return Painting{}, err
	} else if !ok {
		return Painting{}, notFound("artist", painting.ArtistID)
	}
	museums, err := h.Museums(ctx)
	if err != nil {
		return Painting{}, err
	}
	if _, ok, err := museums.FindByID(ctx, painting.MuseumID); err != nil {
		return Painting{}, err
	} else if !ok {
		return Painting{}, notFound("museum", painting.MuseumID)
	}
	paintings, err := h.Paintings(ctx)
	if err != nil {
		return Painting{}, err
	}
	created, undo, err := create(ctx, h, "painting", paintings.Create, paintings.Remove, painting)
	if err != nil {
		return Painting{}, err
	}
	md, err := h.attachPhoto(ctx, undo, domain.EntityPainting, created.ID, photo)
	if err != nil {
		return Painting{}, err
	}
	h.logger.Info("painting created", "title", created.Title, "id", created.ID)
	return Painting{Painting: created, Photo: md}, nil
}

// ClearAll empties the catalog and user databases together with the images
// they own. Countries are a dictionary and stay. Every step runs even when an
// earlier one failed.
func (h *Harness) ClearAll(ctx context.Context) error {
	var errs []error
	wipe := func(service domain.Service, entityType domain.EntityType, removeAll func(context.Context) error) {
		if err := removeAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", service, err))
			return
		}
		if entityType == "" {
			return
		}
		files, err := h.Files(ctx)
		if err == nil {
			err = files.RemoveAllByEntityType(ctx, entityType)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("clear %s images: %w", entityType, err))
		}
	}
	if r, err := h.Paintings(ctx); err != nil {
		errs = append(errs, err)
	} else {
		wipe(domain.ServicePaintings, domain.EntityPainting, r.RemoveAll)
	}
	if r, err := h.Museums(ctx); err != nil {
		errs = append(errs, err)
	} else {
		wipe(domain.ServiceMuseums, domain.EntityMuseum, r.RemoveAll)
	}
	if r, err := h.Artists(ctx); err != nil {
		errs = append(errs, err)
	} else {
		wipe(domain.ServiceArtists, domain.EntityArtist, r.RemoveAll)
	}
	if r, err := h.Users(ctx); err != nil {
		errs = append(errs, err)
	} else {
		wipe(domain.ServiceUsers, domain.EntityUser, r.RemoveAll)
	}
	if r, err := h.AuthUsers(ctx); err != nil {
		errs = append(errs, err)
	} else {
		wipe(domain.ServiceAuth, "", r.RemoveAll)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	h.logger.Info("fixture data cleared")
	return nil
}

// create stores rec and returns an undo stack that removes it again.
func create[T any](ctx context.Context, h *Harness, kind string, add func(context.Context, T) (T, error), remove func(context.Context, T) error, rec T) (T, *undoStack, error) {
	created, err := add(ctx, rec)
	if err != nil {
		var zero T
		return zero, nil, fmt.Errorf("create %s: %w", kind, err)
	}
	undo := &undoStack{logger: h.logger}
	undo.push(kind, func(ctx context.Context) error { return remove(ctx, created) })
	return created, undo, nil
}

func checkPhoto(photo string) error {
	if photo == "" {
		return nil
	}
	_, err := ImageFormat(photo)
	return err
}

// attachPhoto stores photo for the entity. On failure the undo stack is
// unwound. An empty photo stores nothing.
func (h *Harness) attachPhoto(ctx context.Context, undo *undoStack, entityType domain.EntityType, entityID uuid.UUID, photo string) (*domain.ImageMetadata, error) {
	if photo == "" {
		return nil, nil
	}
	image, err := NewImage(entityType, entityID, photo)
	if err == nil {
		var md *domain.ImageMetadata
		if md, err = h.storeImage(ctx, image); err == nil {
			return md, nil
		}
	}
	undo.unwind(ctx)
	return nil, err
}

func (h *Harness) storeImage(ctx context.Context, image domain.ImageMetadata) (*domain.ImageMetadata, error) {
	files, err := h.Files(ctx)
	if err != nil {
		return nil, err
	}
	md, err := files.Create(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("store %s image: %w", image.EntityType, err)
	}
	return &md, nil
}

func (h *Harness) removeImage(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) error {
	files, err := h.Files(ctx)
	if err != nil {
		return err
	}
	md, ok, err := files.FindByEntity(ctx, entityType, entityID)
	if err != nil || !ok {
		return err
	}
	if err := files.Remove(ctx, md); err != nil {
		return fmt.Errorf("remove %s image: %w", entityType, err)
	}
	return nil
}
