package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const selectPaintings = `SELECT ` + rowmapper.PaintingColumns + ` FROM paintings`

// PaintingDAO reads and writes the paintings table. Artist and museum ids
// point into other databases and are stored without checks.
type PaintingDAO struct{ base }

func NewPaintingDAO(tpl database.TxTemplate) *PaintingDAO {
	return &PaintingDAO{base{tpl: tpl}}
}

func (d *PaintingDAO) Create(ctx context.Context, painting domain.Painting) (domain.Painting, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Painting, error) {
		painting.ID = ensureID(painting.ID)
		_, err := q.ExecContext(ctx,
			`INSERT INTO paintings (id, title, description, artist_id, museum_id) VALUES ($1, $2, $3, $4, $5)`,
			painting.ID, painting.Title, rowmapper.StringToNull(painting.Description), painting.ArtistID, painting.MuseumID)
		if err != nil {
			return domain.Painting{}, d.classify(err, "create painting %q", painting.Title)
		}
		return painting, nil
	})
}

func (d *PaintingDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.Painting, bool, error) {
	p, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanPainting, selectPaintings+` WHERE id = $1`, id)
	if err != nil {
		return p, false, fmt.Errorf("find painting %s: %w", id, err)
	}
	return p, ok, nil
}

func (d *PaintingDAO) FindByTitle(ctx context.Context, title string) (domain.Painting, bool, error) {
	p, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanPainting, selectPaintings+` WHERE title = $1`, title)
	if err != nil {
		return p, false, fmt.Errorf("find painting by title %q: %w", title, err)
	}
	return p, ok, nil
}

func (d *PaintingDAO) FindAllByPartialTitle(ctx context.Context, fragment string) ([]domain.Painting, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanPainting,
		selectPaintings+` WHERE LOWER(title) LIKE LOWER($1) ESCAPE '\' ORDER BY title`, containsPattern(fragment))
	if err != nil {
		return nil, fmt.Errorf("find paintings by title %q: %w", fragment, err)
	}
	return out, nil
}

func (d *PaintingDAO) FindAllByArtistID(ctx context.Context, artistID uuid.UUID) ([]domain.Painting, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanPainting,
		selectPaintings+` WHERE artist_id = $1 ORDER BY title`, artistID)
	if err != nil {
		return nil, fmt.Errorf("find paintings of artist %s: %w", artistID, err)
	}
	return out, nil
}

func (d *PaintingDAO) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Painting, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanPainting,
		selectPaintings+` WHERE id IN (`+placeholders(1, len(ids))+`) ORDER BY title`, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("find paintings by ids: %w", err)
	}
	return out, nil
}

func (d *PaintingDAO) FindAll(ctx context.Context) ([]domain.Painting, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanPainting, selectPaintings+` ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("find paintings: %w", err)
	}
	return out, nil
}

func (d *PaintingDAO) Update(ctx context.Context, painting domain.Painting) (domain.Painting, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Painting, error) {
		_, err := q.ExecContext(ctx,
			`UPDATE paintings SET title = $1, description = $2, artist_id = $3, museum_id = $4 WHERE id = $5`,
			painting.Title, rowmapper.StringToNull(painting.Description), painting.ArtistID, painting.MuseumID, painting.ID)
		if err != nil {
			return domain.Painting{}, d.classify(err, "update painting %q", painting.Title)
		}
		return painting, nil
	})
}

func (d *PaintingDAO) Remove(ctx context.Context, painting domain.Painting) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM paintings WHERE id = $1`, painting.ID); err != nil {
			return fmt.Errorf("remove painting %s: %w", painting.ID, err)
		}
		return nil
	})
}

func (d *PaintingDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM paintings`); err != nil {
			return fmt.Errorf("remove paintings: %w", err)
		}
		return nil
	})
}
