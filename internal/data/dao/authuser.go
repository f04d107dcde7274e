package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const selectAuthUsers = `SELECT ` + rowmapper.AuthUserColumns + ` FROM users`

// AuthUserDAO reads and writes credential rows of the auth database. It never
// touches authorities; AuthorityDAO and the auth user repository do.
type AuthUserDAO struct {
	base
	encoder PasswordEncoder
}

func NewAuthUserDAO(tpl database.TxTemplate) *AuthUserDAO {
	return &AuthUserDAO{base: base{tpl: tpl}}
}

// WithEncoder returns a copy hashing passwords with enc.
func (d *AuthUserDAO) WithEncoder(enc PasswordEncoder) *AuthUserDAO {
	cp := *d
	cp.encoder = enc
	return &cp
}

// Encoder returns the password encoder in use.
func (d *AuthUserDAO) Encoder() PasswordEncoder { return d.encoder }

// Create inserts user with its password hashed. The returned record carries
// the stored hash and no authorities.
func (d *AuthUserDAO) Create(ctx context.Context, user domain.AuthUser) (domain.AuthUser, error) {
	encoded, err := d.encoder.Encode(user.Password)
	if err != nil {
		return domain.AuthUser{}, err
	}
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.AuthUser, error) {
		user.ID = ensureID(user.ID)
		user.Password = encoded
		user.Authorities = nil
		_, err := q.ExecContext(ctx,
			`INSERT INTO users (id, username, password, enabled, account_non_expired, account_non_locked, credentials_non_expired)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Username, user.Password, user.Enabled,
			user.AccountNonExpired, user.AccountNonLocked, user.CredentialsNonExpired)
		if err != nil {
			return domain.AuthUser{}, d.classify(err, "create auth user %q", user.Username)
		}
		return user, nil
	})
}

func (d *AuthUserDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.AuthUser, bool, error) {
	u, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanAuthUser, selectAuthUsers+` WHERE id = $1`, id)
	if err != nil {
		return u, false, fmt.Errorf("find auth user %s: %w", id, err)
	}
	return u, ok, nil
}

func (d *AuthUserDAO) FindByUsername(ctx context.Context, username string) (domain.AuthUser, bool, error) {
	u, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanAuthUser, selectAuthUsers+` WHERE username = $1`, username)
	if err != nil {
		return u, false, fmt.Errorf("find auth user by username %q: %w", username, err)
	}
	return u, ok, nil
}

func (d *AuthUserDAO) FindAll(ctx context.Context) ([]domain.AuthUser, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanAuthUser, selectAuthUsers+` ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("find auth users: %w", err)
	}
	return out, nil
}

// Update replaces the credential row. Raw passwords are hashed; stored hashes
// are written back as is.
func (d *AuthUserDAO) Update(ctx context.Context, user domain.AuthUser) (domain.AuthUser, error) {
	encoded, err := d.encoder.Encode(user.Password)
	if err != nil {
		return domain.AuthUser{}, err
	}
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.AuthUser, error) {
		user.Password = encoded
		_, err := q.ExecContext(ctx,
			`UPDATE users SET username = $1, password = $2, enabled = $3, account_non_expired = $4,
			 account_non_locked = $5, credentials_non_expired = $6 WHERE id = $7`,
			user.Username, user.Password, user.Enabled, user.AccountNonExpired,
			user.AccountNonLocked, user.CredentialsNonExpired, user.ID)
		if err != nil {
			return domain.AuthUser{}, d.classify(err, "update auth user %q", user.Username)
		}
		return user, nil
	})
}

// Remove deletes the credential row. Authorities referencing it must be
// removed first.
func (d *AuthUserDAO) Remove(ctx context.Context, user domain.AuthUser) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID); err != nil {
			return fmt.Errorf("remove auth user %s: %w", user.ID, err)
		}
		return nil
	})
}

func (d *AuthUserDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return fmt.Errorf("remove auth users: %w", err)
		}
		return nil
	})
}
