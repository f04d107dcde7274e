// Package domain defines the persistent entity records that fixture code
// creates, mutates and removes across the rococo service databases.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the owner kind of an image stored in the files database.
type EntityType string

// Supported image owner kinds, stored verbatim in image_metadata.entity_type.
const (
	// EntityArtist identifies an artist portrait.
	EntityArtist EntityType = "ARTIST"
	// EntityMuseum identifies a museum photo.
	EntityMuseum EntityType = "MUSEUM"
	// EntityPainting identifies a painting image.
	EntityPainting EntityType = "PAINTING"
	// EntityUser identifies a user avatar.
	EntityUser EntityType = "USER"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityArtist, EntityMuseum, EntityPainting, EntityUser:
		return true
	}
	return false
}

// AuthorityKind enumerates the grants stored in the auth database.
type AuthorityKind string

// Canonical authorities issued to every registered user.
const (
	AuthorityRead  AuthorityKind = "read"
	AuthorityWrite AuthorityKind = "write"
)

// Artist is a row of the artists database.
type Artist struct {
	ID        uuid.UUID
	Name      string
	Biography string
}

// Museum is a row of the museums database. CountryID references a row owned by
// the countries database and is not enforced locally.
type Museum struct {
	ID          uuid.UUID
	Title       string
	Description string
	CountryID   uuid.NullUUID
	City        string
}

// Painting is a row of the paintings database. ArtistID and MuseumID are
// cross-database references.
type Painting struct {
	ID          uuid.UUID
	Title       string
	Description string
	ArtistID    uuid.UUID
	MuseumID    uuid.UUID
}

// Country is a row of the countries database.
type Country struct {
	ID   uuid.UUID
	Name string
	Code string
}

// User is a userdata profile row.
type User struct {
	ID        uuid.UUID
	Username  string
	FirstName string
	LastName  string
}

// AuthUser is a credentials row of the auth database together with the
// authorities attached by the auth user repository.
type AuthUser struct {
	ID                    uuid.UUID
	Username              string
	Password              string
	Enabled               bool
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
	Authorities           []Authority
}

// NewAuthUser returns an enabled, unexpired, unlocked account carrying the
// given authorities.
func NewAuthUser(username, password string, kinds ...AuthorityKind) AuthUser {
	user := AuthUser{
		Username:              username,
		Password:              password,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
	}
	for _, kind := range kinds {
		user.Authorities = append(user.Authorities, Authority{Authority: kind})
	}
	return user
}

// Authority grants a permission to an AuthUser.
type Authority struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Authority AuthorityKind
}

// ImageContent holds the binary payload of an image.
type ImageContent struct {
	ID            uuid.UUID
	Data          []byte
	ThumbnailData []byte
}

// ImageMetadata describes an image owned by an entity of another database.
// Content is always stored before the metadata row that references it.
type ImageMetadata struct {
	ID          uuid.UUID
	EntityType  EntityType
	EntityID    uuid.UUID
	Format      string
	ContentHash string
	Content     ImageContent
	CreatedDate time.Time
}
