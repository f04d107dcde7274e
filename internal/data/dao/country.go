package dao

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
	"rococodb/pkg/domain"
)

const selectCountries = `SELECT ` + rowmapper.CountryColumns + ` FROM countries`

// CountryDAO reads and writes the countries table.
type CountryDAO struct{ base }

func NewCountryDAO(tpl database.TxTemplate) *CountryDAO {
	return &CountryDAO{base{tpl: tpl}}
}

func (d *CountryDAO) Create(ctx context.Context, country domain.Country) (domain.Country, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Country, error) {
		country.ID = ensureID(country.ID)
		_, err := q.ExecContext(ctx,
			`INSERT INTO countries (id, name, code) VALUES ($1, $2, $3)`,
			country.ID, country.Name, country.Code)
		if err != nil {
			return domain.Country{}, d.classify(err, "create country %q", country.Code)
		}
		return country, nil
	})
}

func (d *CountryDAO) FindByID(ctx context.Context, id uuid.UUID) (domain.Country, bool, error) {
	c, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanCountry, selectCountries+` WHERE id = $1`, id)
	if err != nil {
		return c, false, fmt.Errorf("find country %s: %w", id, err)
	}
	return c, ok, nil
}

func (d *CountryDAO) FindByCode(ctx context.Context, code string) (domain.Country, bool, error) {
	c, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanCountry, selectCountries+` WHERE code = $1`, code)
	if err != nil {
		return c, false, fmt.Errorf("find country by code %q: %w", code, err)
	}
	return c, ok, nil
}

func (d *CountryDAO) FindByName(ctx context.Context, name string) (domain.Country, bool, error) {
	c, ok, err := findOne(ctx, d.tpl.Reader(ctx), rowmapper.ScanCountry, selectCountries+` WHERE name = $1`, name)
	if err != nil {
		return c, false, fmt.Errorf("find country by name %q: %w", name, err)
	}
	return c, ok, nil
}

func (d *CountryDAO) FindAll(ctx context.Context) ([]domain.Country, error) {
	out, err := findAll(ctx, d.tpl.Reader(ctx), rowmapper.ScanCountry, selectCountries+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("find countries: %w", err)
	}
	return out, nil
}

func (d *CountryDAO) Update(ctx context.Context, country domain.Country) (domain.Country, error) {
	return database.Execute(ctx, d.tpl, func(ctx context.Context, q database.Queryer) (domain.Country, error) {
		_, err := q.ExecContext(ctx,
			`UPDATE countries SET name = $1, code = $2 WHERE id = $3`,
			country.Name, country.Code, country.ID)
		if err != nil {
			return domain.Country{}, d.classify(err, "update country %q", country.Code)
		}
		return country, nil
	})
}

func (d *CountryDAO) Remove(ctx context.Context, country domain.Country) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM countries WHERE id = $1`, country.ID); err != nil {
			return fmt.Errorf("remove country %s: %w", country.ID, err)
		}
		return nil
	})
}

func (d *CountryDAO) RemoveAll(ctx context.Context) error {
	return d.tpl.Run(ctx, func(ctx context.Context, q database.Queryer) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM countries`); err != nil {
			return fmt.Errorf("remove countries: %w", err)
		}
		return nil
	})
}
