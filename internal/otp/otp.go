// Package otp manages the one-time email verification code attached to a user record.
package otp

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tazhibayda/event-service/internal/domain"
	"github.com/tazhibayda/event-service/internal/security"
)

const (
	DefaultTTL = 5 * time.Minute
	minCode    = 100000
	maxCode    = 999999
)

type Manager struct {
	TTL  time.Duration
	Now  func() time.Time
	Rand io.Reader // nil means crypto/rand
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{TTL: ttl, Now: time.Now}
}

// Issue generates a fresh code on u, replacing any pending one, and returns it.
func (m *Manager) Issue(u *domain.User) (int, error) {
	code, err := security.RandomInt(m.Rand, minCode, maxCode)
	if err != nil {
		return 0, err
	}
	u.OTP = &domain.OTP{Code: code, ExpiredAt: m.now().Add(m.TTL)}
	return code, nil
}

// Check reports whether supplied matches u's pending code before it expires.
// The code is not consumed.
func (m *Manager) Check(u *domain.User, supplied string) bool {
	if u == nil || u.OTP == nil {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(supplied))
	if err != nil || n != u.OTP.Code {
		return false
	}
	return m.now().Before(u.OTP.ExpiredAt)
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}
