package rowmapper

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rococodb/pkg/domain"
)

// Column lists, in scan order.
const (
	ArtistColumns    = "id, name, biography"
	MuseumColumns    = "id, title, description, country_id, city"
	PaintingColumns  = "id, title, description, artist_id, museum_id"
	CountryColumns   = "id, name, code"
	UserColumns      = "id, username, first_name, last_name"
	AuthUserColumns  = "id, username, password, enabled, account_non_expired, account_non_locked, credentials_non_expired"
	AuthorityColumns = "id, user_id, authority"
	ContentColumns   = "id, data, thumbnail_data"
	// MetadataColumns selects image_metadata m joined with image_content c.
	MetadataColumns = "m.id, m.entity_type, m.entity_id, m.format, m.content_hash, m.content_id, c.data, c.thumbnail_data, m.created_date"
)

type artistRow struct {
	ID        uuid.UUID
	Name      string
	Biography sql.NullString
}

func (r *artistRow) scanArgs() []any { return []any{&r.ID, &r.Name, &r.Biography} }

func (r artistRow) toDomain() domain.Artist {
	return domain.Artist{ID: r.ID, Name: r.Name, Biography: nullToString(r.Biography)}
}

// ScanArtist maps one artists row.
func ScanArtist(s Scanner) (domain.Artist, error) {
	var r artistRow
	if err := s.Scan(r.scanArgs()...); err != nil {
		return domain.Artist{}, fmt.Errorf("scan artist: %w", err)
	}
	return r.toDomain(), nil
}

type museumRow struct {
	ID          uuid.UUID
	Title       string
	Description sql.NullString
	CountryID   uuid.NullUUID
	City        sql.NullString
}

func (r *museumRow) scanArgs() []any {
	return []any{&r.ID, &r.Title, &r.Description, &r.CountryID, &r.City}
}

func (r museumRow) toDomain() domain.Museum {
	return domain.Museum{
		ID:          r.ID,
		Title:       r.Title,
		Description: nullToString(r.Description),
		CountryID:   r.CountryID,
		City:        nullToString(r.City),
	}
}

// ScanMuseum maps one museums row.
func ScanMuseum(s Scanner) (domain.Museum, error) {
	var r museumRow
	if err := s.Scan(r.scanArgs()...); err != nil {
		return domain.Museum{}, fmt.Errorf("scan museum: %w", err)
	}
	return r.toDomain(), nil
}

type paintingRow struct {
	ID          uuid.UUID
	Title       string
	Description sql.NullString
	ArtistID    uuid.UUID
	MuseumID    uuid.UUID
}

func (r *paintingRow) scanArgs() []any {
	return []any{&r.ID, &r.Title, &r.Description, &r.ArtistID, &r.MuseumID}
}

func (r paintingRow) toDomain() domain.Painting {
	return domain.Painting{
		ID:          r.ID,
		Title:       r.Title,
		Description: nullToString(r.Description),
		ArtistID:    r.ArtistID,
		MuseumID:    r.MuseumID,
	}
}

// ScanPainting maps one paintings row.
func ScanPainting(s Scanner) (domain.Painting, error) {
	var r paintingRow
	if err := s.Scan(r.scanArgs()...); err != nil {
		return domain.Painting{}, fmt.Errorf("scan painting: %w", err)
	}
	return r.toDomain(), nil
}

// ScanCountry maps one countries row.
func ScanCountry(s Scanner) (domain.Country, error) {
	var c domain.Country
	if err := s.Scan(&c.ID, &c.Name, &c.Code); err != nil {
		return domain.Country{}, fmt.Errorf("scan country: %w", err)
	}
	return c, nil
}

type userRow struct {
	ID        uuid.UUID
	Username  string
	FirstName sql.NullString
	LastName  sql.NullString
}

func (r *userRow) scanArgs() []any { return []any{&r.ID, &r.Username, &r.FirstName, &r.LastName} }

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		Username:  r.Username,
		FirstName: nullToString(r.FirstName),
		LastName:  nullToString(r.LastName),
	}
}

// ScanUser maps one userdata users row.
func ScanUser(s Scanner) (domain.User, error) {
	var r userRow
	if err := s.Scan(r.scanArgs()...); err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	return r.toDomain(), nil
}

// ScanAuthUser maps one auth users row. Authorities are left empty.
func ScanAuthUser(s Scanner) (domain.AuthUser, error) {
	var u domain.AuthUser
	if err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Password,
		&u.Enabled,
		&u.AccountNonExpired,
		&u.AccountNonLocked,
		&u.CredentialsNonExpired,
	); err != nil {
		return domain.AuthUser{}, fmt.Errorf("scan auth user: %w", err)
	}
	return u, nil
}

// ScanAuthority maps one authorities row.
func ScanAuthority(s Scanner) (domain.Authority, error) {
	var (
		a    domain.Authority
		kind string
	)
	if err := s.Scan(&a.ID, &a.UserID, &kind); err != nil {
		return domain.Authority{}, fmt.Errorf("scan authority: %w", err)
	}
	a.Authority = domain.AuthorityKind(kind)
	return a, nil
}

// ScanImageContent maps one image_content row.
func ScanImageContent(s Scanner) (domain.ImageContent, error) {
	var c domain.ImageContent
	if err := s.Scan(&c.ID, &c.Data, &c.ThumbnailData); err != nil {
		return domain.ImageContent{}, fmt.Errorf("scan image content: %w", err)
	}
	return c, nil
}

type metadataRow struct {
	ID            uuid.UUID
	EntityType    string
	EntityID      uuid.UUID
	Format        string
	ContentHash   string
	ContentID     uuid.UUID
	Data          []byte
	ThumbnailData []byte
	CreatedDate   time.Time
}

func (r *metadataRow) scanArgs() []any {
	return []any{
		&r.ID, &r.EntityType, &r.EntityID, &r.Format, &r.ContentHash,
		&r.ContentID, &r.Data, &r.ThumbnailData, &r.CreatedDate,
	}
}

func (r metadataRow) toDomain() domain.ImageMetadata {
	return domain.ImageMetadata{
		ID:          r.ID,
		EntityType:  domain.EntityType(r.EntityType),
		EntityID:    r.EntityID,
		Format:      r.Format,
		ContentHash: r.ContentHash,
		Content: domain.ImageContent{
			ID:            r.ContentID,
			Data:          r.Data,
			ThumbnailData: r.ThumbnailData,
		},
		CreatedDate: r.CreatedDate.UTC(),
	}
}

// ScanImageMetadata maps one row selected with MetadataColumns.
func ScanImageMetadata(s Scanner) (domain.ImageMetadata, error) {
	var r metadataRow
	if err := s.Scan(r.scanArgs()...); err != nil {
		return domain.ImageMetadata{}, fmt.Errorf("scan image metadata: %w", err)
	}
	return r.toDomain(), nil
}
