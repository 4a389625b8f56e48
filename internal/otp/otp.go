// Package otp generates, hashes and rate-limits the one-time codes used for
// password recovery.
package otp

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	// Length is the number of digits in a code.
	Length = 6
	// TTL is how long a code stays valid after it is issued.
	TTL = 10 * time.Minute
)

var ten = big.NewInt(10)

// Generate returns a random numeric code of Length digits.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Hash returns the bcrypt hash stored in place of a code.
func Hash(code string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Check reports whether code matches hash.
func Check(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

// Limiter throttles code requests per address.
type Limiter struct {
	every    time.Duration
	burst    int
	limiters *xsync.MapOf[string, *rate.Limiter]
}

// NewLimiter allows burst requests per address, refilling one every interval.
func NewLimiter(every time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		every:    every,
		burst:    burst,
		limiters: xsync.NewMapOf[string, *rate.Limiter](),
	}
}

// Allow reports whether another code may be sent to address now.
func (l *Limiter) Allow(address string) bool {
	lim, _ := l.limiters.LoadOrCompute(strings.ToLower(address), func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(l.every), l.burst)
	})
	return lim.Allow()
}
