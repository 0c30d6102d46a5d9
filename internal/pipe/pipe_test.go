package pipe

import (
	"errors"
	"os/user"
	"strings"
	"testing"
)

func TestNewResolver_Override(t *testing.T) {
	r := NewResolver(Options{Override: "/run/custom.sock"})

	got, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got != "/run/custom.sock" {
		t.Fatalf("Resolve() = %q, want override", got)
	}
}

func TestTooLong(t *testing.T) {
	if TooLong("/tmp/keeweb-browser-1000.sock") {
		t.Fatal("TooLong(short path) = true")
	}

	if !TooLong("/" + strings.Repeat("a", 300)) {
		t.Fatal("TooLong(300 bytes) = false")
	}
}

func TestShortUsername(t *testing.T) {
	tests := map[string]string{
		`CORP\alice`: "alice",
		"bob":        "bob",
		`\`:          "",
	}

	for in, want := range tests {
		if got := shortUsername(in); got != want {
			t.Errorf("shortUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCurrentUser_WrapsLookupFailure(t *testing.T) {
	lookupErr := errors.New("no passwd entry")

	_, err := currentUser(func() (*user.User, error) { return nil, lookupErr })
	if !errors.Is(err, ErrIdentity) {
		t.Fatalf("error = %v, want ErrIdentity", err)
	}

	if !errors.Is(err, lookupErr) {
		t.Fatalf("error = %v, want it to wrap the lookup failure", err)
	}

	_, err = currentUser(func() (*user.User, error) { return &user.User{}, nil })
	if !errors.Is(err, ErrIdentity) {
		t.Fatalf("empty user error = %v, want ErrIdentity", err)
	}
}
