package fixtures

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/pkg/domain"
)

// UserSpec describes a user to register. Photo is an optional data URL.
type UserSpec struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Photo     string
}

// User is a registered user: the auth account, the userdata profile and the
// avatar when one was stored. Password keeps the raw password.
type User struct {
	Auth     domain.AuthUser
	Profile  domain.User
	Photo    *domain.ImageMetadata
	Password string
}

// CreateUser registers spec in the auth database with read and write
// authorities, then creates the userdata profile, then stores the avatar.
func (h *Harness) CreateUser(ctx context.Context, spec UserSpec) (User, error) {
	var image domain.ImageMetadata
	if spec.Photo != "" {
		var err error
		if image, err = NewImage(domain.EntityUser, uuid.Nil, spec.Photo); err != nil {
			return User{}, err
		}
	}
	auth, err := h.AuthUsers(ctx)
	if err != nil {
		return User{}, err
	}
	users, err := h.Users(ctx)
	if err != nil {
		return User{}, err
	}

	undo := &undoStack{logger: h.logger}
	account, err := auth.Create(ctx, domain.NewAuthUser(spec.Username, spec.Password, domain.AuthorityRead, domain.AuthorityWrite))
	if err != nil {
		return User{}, fmt.Errorf("create auth user %s: %w", spec.Username, err)
	}
	undo.push("auth user", func(ctx context.Context) error { return auth.Remove(ctx, account) })

	profile, err := users.Create(ctx, domain.User{
		Username:  spec.Username,
		FirstName: spec.FirstName,
		LastName:  spec.LastName,
	})
	if err != nil {
		undo.unwind(ctx)
		return User{}, fmt.Errorf("create user %s: %w", spec.Username, err)
	}
	out := User{Auth: account, Profile: profile, Password: spec.Password}
	if spec.Photo == "" {
		h.logger.Info("user created", "username", spec.Username, "id", profile.ID)
		return out, nil
	}
	undo.push("user", func(ctx context.Context) error { return users.Remove(ctx, profile) })

	image.EntityID = profile.ID
	if out.Photo, err = h.storeImage(ctx, image); err != nil {
		undo.unwind(ctx)
		return User{}, err
	}
	h.logger.Info("user created", "username", spec.Username, "id", profile.ID, "photo", out.Photo.ID)
	return out, nil
}

// DeleteUser removes the profile of username with its avatar, then the auth
// account. Missing rows are skipped.
func (h *Harness) DeleteUser(ctx context.Context, username string) error {
	users, err := h.Users(ctx)
	if err != nil {
		return err
	}
	profile, ok, err := users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if ok {
		if err := h.removeImage(ctx, domain.EntityUser, profile.ID); err != nil {
			return err
		}
		if err := users.Remove(ctx, profile); err != nil {
			return fmt.Errorf("remove user %s: %w", username, err)
		}
	}
	auth, err := h.AuthUsers(ctx)
	if err != nil {
		return err
	}
	account, ok, err := auth.FindByUsername(ctx, username)
	if err != nil || !ok {
		return err
	}
	if err := auth.Remove(ctx, account); err != nil {
		return fmt.Errorf("remove auth user %s: %w", username, err)
	}
	h.logger.Info("user deleted", "username", username)
	return nil
}

// EnsureTestUser returns the configured test user, registering it or
// completing a missing profile first.
func (h *Harness) EnsureTestUser(ctx context.Context) (User, error) {
	creds := h.cfg.TestUser
	auth, err := h.AuthUsers(ctx)
	if err != nil {
		return User{}, err
	}
	account, ok, err := auth.FindByUsername(ctx, creds.Username)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return h.CreateUser(ctx, UserSpec{Username: creds.Username, Password: creds.Password})
	}
	users, err := h.Users(ctx)
	if err != nil {
		return User{}, err
	}
	profile, ok, err := users.FindByUsername(ctx, creds.Username)
	if err != nil {
		return User{}, err
	}
	if !ok {
		if profile, err = users.Create(ctx, domain.User{Username: creds.Username}); err != nil {
			return User{}, fmt.Errorf("create user %s: %w", creds.Username, err)
		}
	}
	out := User{Auth: account, Profile: profile, Password: creds.Password}
	files, err := h.Files(ctx)
	if err != nil {
		return User{}, err
	}
	if md, ok, err := files.FindByEntity(ctx, domain.EntityUser, profile.ID); err != nil {
		return User{}, err
	} else if ok {
		out.Photo = &md
	}
	return out, nil
}
