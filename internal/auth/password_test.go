package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Cost 4 is bcrypt's minimum; the default cost would make every test case
// pay ~250ms for nothing.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHashLengthBoundary(t *testing.T) {
	ps := newTestPasswordService()

	// The limit is 72 BYTES, not runes — bcrypt would silently truncate
	// anything longer, so Hash rejects it instead.
	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"exactly 72 ascii bytes", strings.Repeat("a", 72), false},
		{"73 ascii bytes", strings.Repeat("a", 73), true},
		{"24 three-byte runes (72 bytes)", strings.Repeat("密", 24), false},
		{"25 three-byte runes (75 bytes)", strings.Repeat("密", 25), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ps.Hash(tc.password)
			if tc.wantErr && err == nil {
				t.Errorf("Hash() accepted a %d-byte password", len(tc.password))
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Hash() error = %v for a %d-byte password", err, len(tc.password))
			}
		})
	}
}

func TestHashUsesConfiguredCost(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("any-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("output is not a bcrypt hash: %v", err)
	}
	if cost != 4 {
		t.Errorf("hash cost = %d, want the injected cost 4", cost)
	}
}

func TestHashSaltsEveryCall(t *testing.T) {
	ps := newTestPasswordService()

	first, err := ps.Hash("repeat-me")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := ps.Hash("repeat-me")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical; salting is broken")
	}

	// Both must still verify against the original password.
	for _, h := range []string{first, second} {
		if err := ps.Verify(h, "repeat-me"); err != nil {
			t.Errorf("Verify() failed for a freshly produced hash: %v", err)
		}
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("sw0rdfish")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	cases := []struct {
		name      string
		hash      string
		plaintext string
		wantErr   bool
	}{
		{"correct password", hash, "sw0rdfish", false},
		{"wrong password", hash, "sw0rdfish2", true},
		{"empty password", hash, "", true},
		{"case difference", hash, "Sw0rdfish", true},
		{"malformed hash", "definitely-not-bcrypt", "sw0rdfish", true},
		{"empty hash", "", "sw0rdfish", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ps.Verify(tc.hash, tc.plaintext)
			if tc.wantErr && err == nil {
				t.Error("Verify() accepted the password")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	for _, password := range []string{
		"minlen",
		"with spaces inside ",
		"mixed-скрипт-密码-🔑",
		"!@#$%^&*()_+-=[]{}",
	} {
		t.Run(password, func(t *testing.T) {
			hash, err := ps.Hash(password)
			if err != nil {
				t.Fatalf("Hash(%q) error = %v", password, err)
			}
			if err := ps.Verify(hash, password); err != nil {
				t.Errorf("Verify() round trip failed for %q: %v", password, err)
			}
		})
	}
}
