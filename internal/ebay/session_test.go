package ebay

import (
	"errors"
	"testing"

	"github.com/cardlister/cardlister/internal/model"
)

func TestSessionStoreStartsUnauthenticated(t *testing.T) {
	s := NewSessionStore()
	if _, err := s.Snapshot(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestSessionStoreReplaceAndSnapshot(t *testing.T) {
	s := NewSessionStore()
	s.Replace(model.OAuthCredential{AccessToken: "tok-1"})

	cred, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if cred.AccessToken != "tok-1" {
		t.Errorf("AccessToken = %q, want tok-1", cred.AccessToken)
	}

	// A later replace must not leak through an earlier snapshot.
	s.Replace(model.OAuthCredential{AccessToken: "tok-2"})
	if cred.AccessToken != "tok-1" {
		t.Errorf("earlier snapshot changed to %q, want tok-1", cred.AccessToken)
	}
}

func TestSessionStoreClear(t *testing.T) {
	s := NewSessionStore()
	s.Replace(model.OAuthCredential{AccessToken: "tok"})
	s.Clear()
	if _, err := s.Snapshot(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated after Clear", err)
	}
}
