package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const selectMuseums = `SELECT ` + rowmapper.MuseumColumns + ` FROM museums`

// MuseumDAO reads and writes the museums table.
type MuseumDAO struct{ base }

func NewMuseumDAO(tpl database.TxTemplate) *MuseumDAO {
	return &MuseumDAO{base{tpl: tpl}}
}

func (d *MuseumDAO) Create(ctx context.Context, museum domain.Museum) (domain.Museum, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Museum, error) {
		museum.ID = ensureID(museum.ID)
		_, err := q.ExecContext(ctx,
			`INSERT INTO museums (id, title, description, country_id, city) VALUES ($1, $2, $3, $4, $5)`,
			museum.ID, museum.Title, rowmapper.StringToNull(museum.Description), museum.CountryID, rowmapper.StringToNull(museum.City))
		if err != nil {
			return domain.Museum{}, d.classify(err, "create museum %q", museum.Title)
		}
		return museum, nil
	})
}

func (d *MuseumDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.Museum, bool, error) {
	m, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanMuseum, selectMuseums+` WHERE id = $1`, id)
	if err != nil {
		return m, false, fmt.Errorf("find museum %s: %w", id, err)
	}
	return m, ok, nil
}

func (d *MuseumDAO) FindByTitle(ctx context.Context, title string) (domain.Museum, bool, error) {
	m, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanMuseum, selectMuseums+` WHERE title = $1`, title)
	if err != nil {
		return m, false, fmt.Errorf("find museum by title %q: %w", title, err)
	}
	return m, ok, nil
}

func (d *MuseumDAO) FindAllByPartialTitle(ctx context.Context, fragment string) ([]domain.Museum, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanMuseum,
		selectMuseums+` WHERE LOWER(title) LIKE LOWER($1) ESCAPE '\' ORDER BY title`, containsPattern(fragment))
	if err != nil {
		return nil, fmt.Errorf("find museums by title %q: %w", fragment, err)
	}
	return out, nil
}

func (d *MuseumDAO) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Museum, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanMuseum,
		selectMuseums+` WHERE id IN (`+placeholders(1, len(ids))+`) ORDER BY title`, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("find museums by ids: %w", err)
	}
	return out, nil
}

func (d *MuseumDAO) FindAll(ctx context.Context) ([]domain.Museum, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanMuseum, selectMuseums+` ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("find museums: %w", err)
	}
	return out, nil
}

func (d *MuseumDAO) Update(ctx context.Context, museum domain.Museum) (domain.Museum, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Museum, error) {
		_, err := q.ExecContext(ctx,
			`UPDATE museums SET title = $1, description = $2, country_id = $3, city = $4 WHERE id = $5`,
			museum.Title, rowmapper.StringToNull(museum.Description), museum.CountryID, rowmapper.StringToNull(museum.City), museum.ID)
		if err != nil {
			return domain.Museum{}, d.classify(err, "update museum %q", museum.Title)
		}
		return museum, nil
	})
}

func (d *MuseumDAO) Remove(ctx context.Context, museum domain.Museum) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM museums WHERE id = $1`, museum.ID); err != nil {
			return fmt.Errorf("remove museum %s: %w", museum.ID, err)
		}
		return nil
	})
}

func (d *MuseumDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM museums`); err != nil {
			return fmt.Errorf("remove museums: %w", err)
		}
		return nil
	})
}
