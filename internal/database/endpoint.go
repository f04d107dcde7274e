package database

import (
	"net/url"
	"strings"
)

// Endpoint identifies one logical database. Postgres endpoints are URLs with a
// postgres:// or postgresql:// scheme; SQLite endpoints use sqlite:<path> or
// file:<path>.
type Endpoint string

// Driver names the family of database an endpoint points at.
type Driver string

// Supported drivers.
const (
	DriverUnknown  Driver = ""
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Driver derives the driver from the endpoint scheme.
func (e Endpoint) Driver() Driver {
	s := strings.ToLower(string(e))
	switch {
	case strings.HasPrefix(s, "postgres://"), strings.HasPrefix(s, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(s, "sqlite:"), strings.HasPrefix(s, "file:"):
		return DriverSQLite
	}
	return DriverUnknown
}

// Redacted returns the endpoint with any password masked, for log output.
func (e Endpoint) Redacted() string {
	if e.Driver() != DriverPostgres {
		return string(e)
	}
	u, err := url.Parse(string(e))
	if err != nil {
		return string(e)
	}
	return u.Redacted()
}

func (e Endpoint) String() string { return e.Redacted() }

// Credentials authenticate against a Postgres endpoint.
type Credentials struct {
	User     string
	Password string
}

// Empty reports whether no user was supplied.
func (c Credentials) Empty() bool { return c.User == "" }

// CredentialsResolver supplies credentials for an endpoint.
type CredentialsResolver interface {
	Credentials(endpoint Endpoint) Credentials
}

// StaticCredentials resolves the same credentials for every endpoint.
type StaticCredentials Credentials

// Credentials implements CredentialsResolver.
func (s StaticCredentials) Credentials(Endpoint) Credentials { return Credentials(s) }
