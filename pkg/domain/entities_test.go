package domain

import "testing"

func TestEntityTypeValid(t *testing.T) {
	for _, et := range []EntityType{EntityArtist, EntityMuseum, EntityPainting, EntityUser} {
		if !et.Valid() {
			t.Fatalf("expected %s to be valid", et)
		}
	}
	if EntityType("COUNTRY").Valid() {
		t.Fatalf("COUNTRY is not an image owner")
	}
}

func TestNewAuthUserDefaults(t *testing.T) {
	user := NewAuthUser("duck", "12345", AuthorityRead, AuthorityWrite)
	if !user.Enabled || !user.AccountNonExpired || !user.AccountNonLocked || !user.CredentialsNonExpired {
		t.Fatalf("expected an active account, got %+v", user)
	}
	if len(user.Authorities) != 2 || user.Authorities[1].Authority != AuthorityWrite {
		t.Fatalf("unexpected authorities %+v", user.Authorities)
	}
}

func TestServices(t *testing.T) {
	services := Services()
	if len(services) != 7 {
		t.Fatalf("expected 7 services, got %d", len(services))
	}
	if got := ServiceArtists.DatabaseName(); got != "rococo-artists" {
		t.Fatalf("unexpected database name %s", got)
	}
	if !ServiceFiles.Valid() || Service("gateway").Valid() {
		t.Fatalf("unexpected validity")
	}
}
