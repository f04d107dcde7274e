package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const selectArtists = `SELECT ` + rowmapper.ArtistColumns + ` FROM artists`

// ArtistDAO reads and writes the artists table.
type ArtistDAO struct{ base }

// NewArtistDAO returns a DAO running on tpl.
func NewArtistDAO(tpl database.TxTemplate) *ArtistDAO {
	return &ArtistDAO{base{tpl: tpl}}
}

// Create inserts artist, assigning an id when it has none.
func (d *ArtistDAO) Create(ctx context.Context, artist domain.Artist) (domain.Artist, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Artist, error) {
		artist.ID = ensureID(artist.ID)
		_, err := q.ExecContext(ctx,
			`INSERT INTO artists (id, name, biography) VALUES ($1, $2, $3)`,
			artist.ID, artist.Name, rowmapper.StringToNull(artist.Biography))
		if err != nil {
			return domain.Artist{}, d.classify(err, "create artist %q", artist.Name)
		}
		return artist, nil
	})
}

func (d *ArtistDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.Artist, bool, error) {
	a, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanArtist, selectArtists+` WHERE id = $1`, id)
	if err != nil {
		return a, false, fmt.Errorf("find artist %s: %w", id, err)
	}
	return a, ok, nil
}

func (d *ArtistDAO) FindByName(ctx context.Context, name string) (domain.Artist, bool, error) {
	a, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanArtist, selectArtists+` WHERE name = $1`, name)
	if err != nil {
		return a, false, fmt.Errorf("find artist by name %q: %w", name, err)
	}
	return a, ok, nil
}

// FindAllByPartialName matches names containing fragment, ignoring case.
func (d *ArtistDAO) FindAllByPartialName(ctx context.Context, fragment string) ([]domain.Artist, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanArtist,
		selectArtists+` WHERE LOWER(name) LIKE LOWER($1) ESCAPE '\' ORDER BY name`, containsPattern(fragment))
	if err != nil {
		return nil, fmt.Errorf("find artists by name %q: %w", fragment, err)
	}
	return out, nil
}

func (d *ArtistDAO) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanArtist,
		selectArtists+` WHERE id IN (`+placeholders(1, len(ids))+`) ORDER BY name`, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("find artists by ids: %w", err)
	}
	return out, nil
}

func (d *ArtistDAO) FindAll(ctx context.Context) ([]domain.Artist, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanArtist, selectArtists+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("find artists: %w", err)
	}
	return out, nil
}

// Update replaces every column of the row identified by artist.ID.
func (d *ArtistDAO) Update(ctx context.Context, artist domain.Artist) (domain.Artist, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Artist, error) {
		_, err := q.ExecContext(ctx,
			`UPDATE artists SET name = $1, biography = $2 WHERE id = $3`,
			artist.Name, rowmapper.StringToNull(artist.Biography), artist.ID)
		if err != nil {
			return domain.Artist{}, d.classify(err, "update artist %q", artist.Name)
		}
		return artist, nil
	})
}

func (d *ArtistDAO) Remove(ctx context.Context, artist domain.Artist) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM artists WHERE id = $1`, artist.ID); err != nil {
			return fmt.Errorf("remove artist %s: %w", artist.ID, err)
		}
		return nil
	})
}

func (d *ArtistDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM artists`); err != nil {
			return fmt.Errorf("remove artists: %w", err)
		}
		return nil
	})
}
