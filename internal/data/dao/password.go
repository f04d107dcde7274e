package dao

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptPrefix tags hashes the way the auth service's delegating encoder
// expects them.
const BcryptPrefix = "{bcrypt}"

// PasswordEncoder hashes raw passwords for the auth users table.
type PasswordEncoder struct {
	Cost int
}

// Encode hashes raw and prefixes the result with BcryptPrefix. A value that
// already carries the prefix is returned unchanged.
func (e PasswordEncoder) Encode(raw string) (string, error) {
	if IsEncoded(raw) {
		return raw, nil
	}
	cost := e.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", fmt.Errorf("encode password: %w", err)
	}
	return BcryptPrefix + string(hash), nil
}

// Matches reports whether raw is the password behind encoded.
func (PasswordEncoder) Matches(encoded, raw string) (bool, error) {
	if !IsEncoded(encoded) {
		return false, fmt.Errorf("password is not %s encoded", BcryptPrefix)
	}
	err := bcrypt.CompareHashAndPassword([]byte(strings.TrimPrefix(encoded, BcryptPrefix)), []byte(raw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	}
	return false, fmt.Errorf("compare password: %w", err)
}

// IsEncoded reports whether s carries the bcrypt prefix.
func IsEncoded(s string) bool { return strings.HasPrefix(s, BcryptPrefix) }
