package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const selectUsers = `SELECT ` + rowmapper.UserColumns + ` FROM users`

// UserDAO reads and writes userdata profiles.
type UserDAO struct{ base }

func NewUserDAO(tpl database.TxTemplate) *UserDAO {
	return &UserDAO{base{tpl: tpl}}
}

func (d *UserDAO) Create(ctx context.Context, user domain.User) (domain.User, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.User, error) {
		user.ID = ensureID(user.ID)
		_, err := q.ExecContext(ctx,
			`INSERT INTO users (id, username, first_name, last_name) VALUES ($1, $2, $3, $4)`,
			user.ID, user.Username, rowmapper.StringToNull(user.FirstName), rowmapper.StringToNull(user.LastName))
		if err != nil {
			return domain.User{}, d.classify(err, "create user %q", user.Username)
		}
		return user, nil
	})
}

func (d *UserDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.User, bool, error) {
	u, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanUser, selectUsers+` WHERE id = $1`, id)
	if err != nil {
		return u, false, fmt.Errorf("find user %s: %w", id, err)
	}
	return u, ok, nil
}

func (d *UserDAO) FindByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	u, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanUser, selectUsers+` WHERE username = $1`, username)
	if err != nil {
		return u, false, fmt.Errorf("find user by username %q: %w", username, err)
	}
	return u, ok, nil
}

func (d *UserDAO) FindAll(ctx context.Context) ([]domain.User, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanUser, selectUsers+` ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return out, nil
}

func (d *UserDAO) Update(ctx context.Context, user domain.User) (domain.User, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.User, error) {
		_, err := q.ExecContext(ctx,
			`UPDATE users SET username = $1, first_name = $2, last_name = $3 WHERE id = $4`,
			user.Username, rowmapper.StringToNull(user.FirstName), rowmapper.StringToNull(user.LastName), user.ID)
		if err != nil {
			return domain.User{}, d.classify(err, "update user %q", user.Username)
		}
		return user, nil
	})
}

func (d *UserDAO) Remove(ctx context.Context, user domain.User) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID); err != nil {
			return fmt.Errorf("remove user %s: %w", user.ID, err)
		}
		return nil
	})
}

func (d *UserDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return fmt.Errorf("remove users: %w", err)
		}
		return nil
	})
}
