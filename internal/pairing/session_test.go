package pairing

import (
	"strings"
	"testing"
)

func TestQRPayloadFormat(t *testing.T) {
	s := Session{Name: "svc1", Password: "pw123"}
	want := "WIFI:T:ADB;S:svc1;P:pw123;;"
	if got := s.QRPayload(); got != want {
		t.Fatalf("payload = %q, want %q", got, want)
	}
}

func TestRandomPassword(t *testing.T) {
	pw := randomPassword(8)
	if len(pw) != 8 {
		t.Fatalf("password length = %d, want 8", len(pw))
	}
	for _, c := range pw {
		if !strings.ContainsRune(passwordAlphabet, c) {
			t.Fatalf("password contains %q outside the alphabet", c)
		}
	}
}

func TestNewSessionFresh(t *testing.T) {
	a := newSession("questlink")
	b := newSession("questlink")
	if !strings.HasPrefix(a.Name, "questlink-") {
		t.Errorf("name = %q, want questlink- prefix", a.Name)
	}
	if a.Password == b.Password && a.Name == b.Name {
		t.Error("two sessions share secret material")
	}
}
