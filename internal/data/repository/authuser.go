package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/dao"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

// AuthUserRepository keeps credential rows and their authorities consistent.
type AuthUserRepository struct {
	tpl         database.TxTemplate
	users       *dao.AuthUserDAO
	authorities *dao.AuthorityDAO
}

// NewAuthUserRepository returns a repository on the auth database template.
func NewAuthUserRepository(tpl database.TxTemplate) *AuthUserRepository {
	return &AuthUserRepository{
		tpl:         tpl,
		users:       dao.NewAuthUserDAO(tpl),
		authorities: dao.NewAuthorityDAO(tpl),
	}
}

// WithEncoder returns a copy hashing passwords with enc.
func (r *AuthUserRepository) WithEncoder(enc dao.PasswordEncoder) *AuthUserRepository {
	cp := *r
	cp.users = r.users.WithEncoder(enc)
	return &cp
}

// Encoder returns the password encoder in use.
func (r *AuthUserRepository) Encoder() dao.PasswordEncoder { return r.users.Encoder() }

// Create stores the user, then each of its authorities tagged with the new
// user id, as one unit of work.
func (r *AuthUserRepository) Create(ctx context.Context, user domain.AuthUser) (domain.AuthUser, error) {
	return database.Execute(ctx, r.tpl, func(ctx context.Context, _ database.Queryer) (domain.AuthUser, error) {
		created, err := r.users.Create(ctx, user)
		if err != nil {
			return domain.AuthUser{}, err
		}
		grants := make([]domain.Authority, len(user.Authorities))
		for i, a := range user.Authorities {
			a.UserID = created.ID
			grants[i] = a
		}
		if created.Authorities, err = r.authorities.Create(ctx, grants...); err != nil {
			return domain.AuthUser{}, err
		}
		return created, nil
	})
}

// Update reconciles the stored authorities with user.Authorities, then
// replaces the credential row. Authorities already stored for the user are
// updated, stored ones missing from the record are removed and the rest are
// created, keeping any id the caller assigned. An id owned by another user
// therefore fails as a constraint violation instead of moving that row.
func (r *AuthUserRepository) Update(ctx context.Context, user domain.AuthUser) (domain.AuthUser, error) {
	return database.Execute(ctx, r.tpl, func(ctx context.Context, _ database.Queryer) (domain.AuthUser, error) {
		stored, err := r.authorities.FindByUserID(ctx, user.ID)
		if err != nil {
			return domain.AuthUser{}, err
		}
		owned := make(map[uuid.UUID]bool, len(stored))
		for _, a := range stored {
			owned[a.ID] = true
		}
		keep := make(map[uuid.UUID]bool, len(user.Authorities))
		var fresh, changed []domain.Authority
		for _, a := range user.Authorities {
			a.UserID = user.ID
			if owned[a.ID] {
				keep[a.ID] = true
				changed = append(changed, a)
				continue
			}
			fresh = append(fresh, a)
		}
		var stale []domain.Authority
		for _, a := range stored {
			if !keep[a.ID] {
				stale = append(stale, a)
			}
		}
		if err := r.authorities.Remove(ctx, stale...); err != nil {
			return domain.AuthUser{}, err
		}
		if _, err := r.authorities.Update(ctx, changed...); err != nil {
			return domain.AuthUser{}, err
		}
		if _, err := r.authorities.Create(ctx, fresh...); err != nil {
			return domain.AuthUser{}, err
		}
		updated, err := r.users.Update(ctx, user)
		if err != nil {
			return domain.AuthUser{}, err
		}
		return r.attach(ctx, updated)
	})
}

// Remove deletes the user's authorities, then the user, as one unit of work.
func (r *AuthUserRepository) Remove(ctx context.Context, user domain.AuthUser) error {
	return r.tpl.Run(ctx, func(ctx context.Context, _ database.Queryer) error {
		grants, err := r.authorities.FindByUserID(ctx, user.ID)
		if err != nil {
			return err
		}
		if err := r.authorities.Remove(ctx, grants...); err != nil {
			return err
		}
		return r.users.Remove(ctx, user)
	})
}

func (r *AuthUserRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.AuthUser, bool, error) {
	user, ok, err := r.users.FindByID(ctx, id)
	if err != nil || !ok {
		return user, ok, err
	}
	user, err = r.attach(ctx, user)
	return user, err == nil, err
}

func (r *AuthUserRepository) FindByUsername(ctx context.Context, username string) (domain.AuthUser, bool, error) {
	user, ok, err := r.users.FindByUsername(ctx, username)
	if err != nil || !ok {
		return user, ok, err
	}
	user, err = r.attach(ctx, user)
	return user, err == nil, err
}

func (r *AuthUserRepository) FindAll(ctx context.Context) ([]domain.AuthUser, error) {
	users, err := r.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i], err = r.attach(ctx, users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// RemoveAll empties authorities, then users.
func (r *AuthUserRepository) RemoveAll(ctx context.Context) error {
	return r.tpl.Run(ctx, func(ctx context.Context, _ database.Queryer) error {
		if err := r.authorities.RemoveAll(ctx); err != nil {
			return err
		}
		return r.users.RemoveAll(ctx)
	})
}

func (r *AuthUserRepository) attach(ctx context.Context, user domain.AuthUser) (domain.AuthUser, error) {
	grants, err := r.authorities.FindByUserID(ctx, user.ID)
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("attach authorities to %q: %w", user.Username, err)
	}
	user.Authorities = grants
	return user, nil
}
