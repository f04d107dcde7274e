// Package dao translates typed entity operations into parameterised statements
// against one service database. Each DAO holds a database.TxTemplate: mutations
// run as a unit of work on it, finders read through TxTemplate.Reader so they
// observe the caller's open transaction when there is one.
//
// Finders return (record, found, error). A missing row is reported as
// found == false with a nil error.
package dao

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"rococodb/internal/data/rowmapper"
	"rococodb/internal/database"
)

type base struct {
	tpl database.TxTemplate
}

// Template returns the unit-of-work template the DAO runs on.
func (b base) Template() database.TxTemplate { return b.tpl }

func (b base) classify(err error, format string, args ...any) error {
	return b.tpl.Source().Classify(err, format, args...)
}

func findOne[T any](ctx context.Context, q database.Queryer, scan func(rowmapper.Scanner) (T, error), query string, args ...any) (T, bool, error) {
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return v, true, nil
}

func findAll[T any](ctx context.Context, q database.Queryer, scan func(rowmapper.Scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rowmapper.ScanAll(rows, scan)
}

// placeholders renders "$from, $from+1, ..." for n parameters.
func placeholders(from, n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(from + i))
	}
	return b.String()
}

func idArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// containsPattern builds a LIKE pattern matching s anywhere, with the LIKE
// wildcards in s escaped by '\'.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}
