package pairing

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Session holds the secret material for one pairing window. A session is
// created by Pairing.Start and discarded by StopPairListener; secrets are
// never reused across sessions, so a stale QR code cannot pair a device
// against a later session.
type Session struct {
	Name     string
	Password string
}

// newSession generates a session with a fresh random password and a service
// name derived from prefix plus a uuid fragment.
func newSession(prefix string) Session {
	return Session{
		Name:     fmt.Sprintf("%s-%s", prefix, strings.Split(uuid.NewString(), "-")[0]),
		Password: randomPassword(8),
	}
}

// QRPayload renders the session as the ADB wireless-pairing QR string. The
// format is parsed by the device's scanner and must match exactly.
func (s Session) QRPayload() string {
	return fmt.Sprintf("WIFI:T:ADB;S:%s;P:%s;;", s.Name, s.Password)
}

// randomPassword returns size random alphanumeric characters.
func randomPassword(size int) string {
	var b strings.Builder
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < size; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("pairing: read random: %v", err))
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String()
}
