// Package repository groups DAOs into the operations fixture code performs.
// Single-table repositories expose their DAO unchanged; the auth user and
// files repositories chain several DAOs inside one unit of work so a parent
// row and its dependents appear and disappear together.
package repository

import (
	"rococodb/internal/data/dao"
	"rococodb/internal/database"
)

// ArtistRepository manages artists.
type ArtistRepository struct{ *dao.ArtistDAO }

func NewArtistRepository(tpl database.TxTemplate) *ArtistRepository {
	return &ArtistRepository{dao.NewArtistDAO(tpl)}
}

// MuseumRepository manages museums.
type MuseumRepository struct{ *dao.MuseumDAO }

func NewMuseumRepository(tpl database.TxTemplate) *MuseumRepository {
	return &MuseumRepository{dao.NewMuseumDAO(tpl)}
}

// PaintingRepository manages paintings.
type PaintingRepository struct{ *dao.PaintingDAO }

func NewPaintingRepository(tpl database.TxTemplate) *PaintingRepository {
	return &PaintingRepository{dao.NewPaintingDAO(tpl)}
}

// CountryRepository manages the country dictionary.
type CountryRepository struct{ *dao.CountryDAO }

func NewCountryRepository(tpl database.TxTemplate) *CountryRepository {
	return &CountryRepository{dao.NewCountryDAO(tpl)}
}

// UserRepository manages userdata profiles.
type UserRepository struct{ *dao.UserDAO }

func NewUserRepository(tpl database.TxTemplate) *UserRepository {
	return &UserRepository{dao.NewUserDAO(tpl)}
}
