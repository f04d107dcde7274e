package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const selectAuthorities = `SELECT ` + rowmapper.AuthorityColumns + ` FROM authorities`

// AuthorityDAO reads and writes the authorities table. Mutations take a batch
// and apply it in one unit of work.
type AuthorityDAO struct{ base }

func NewAuthorityDAO(tpl database.TxTemplate) *AuthorityDAO {
	return &AuthorityDAO{base{tpl: tpl}}
}

// Create inserts every authority, assigning ids where missing.
func (d *AuthorityDAO) Create(ctx context.Context, authorities ...domain.Authority) ([]domain.Authority, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) ([]domain.Authority, error) {
		out := make([]domain.Authority, 0, len(authorities))
		for _, a := range authorities {
			a.ID = ensureID(a.ID)
			_, err := q.ExecContext(ctx,
				`INSERT INTO authorities (id, user_id, authority) VALUES ($1, $2, $3)`,
				a.ID, a.UserID, string(a.Authority))
			if err != nil {
				return nil, d.classify(err, "create authority %s for %s", a.Authority, a.UserID)
			}
			out = append(out, a)
		}
		return out, nil
	})
}

func (d *AuthorityDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.Authority, bool, error) {
	a, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanAuthority, selectAuthorities+` WHERE id = $1`, id)
	if err != nil {
		return a, false, fmt.Errorf("find authority %s: %w", id, err)
	}
	return a, ok, nil
}

func (d *AuthorityDAO) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Authority, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanAuthority,
		selectAuthorities+` WHERE user_id = $1 ORDER BY authority`, userID)
	if err != nil {
		return nil, fmt.Errorf("find authorities of %s: %w", userID, err)
	}
	return out, nil
}

func (d *AuthorityDAO) FindAll(ctx context.Context) ([]domain.Authority, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanAuthority, selectAuthorities+` ORDER BY user_id, authority`)
	if err != nil {
		return nil, fmt.Errorf("find authorities: %w", err)
	}
	return out, nil
}

func (d *AuthorityDAO) Update(ctx context.Context, authorities ...domain.Authority) ([]domain.Authority, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) ([]domain.Authority, error) {
		for _, a := range authorities {
			_, err := q.ExecContext(ctx,
				`UPDATE authorities SET user_id = $1, authority = $2 WHERE id = $3`,
				a.UserID, string(a.Authority), a.ID)
			if err != nil {
				return nil, d.classify(err, "update authority %s", a.ID)
			}
		}
		return authorities, nil
	})
}

func (d *AuthorityDAO) Remove(ctx context.Context, authorities ...domain.Authority) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		for _, a := range authorities {
			if _, err := q.ExecContext(ctx, `DELETE FROM authorities WHERE id = $1`, a.ID); err != nil {
				return fmt.Errorf("remove authority %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

func (d *AuthorityDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM authorities`); err != nil {
			return fmt.Errorf("remove authorities: %w", err)
		}
		return nil
	})
}
