package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPIssuer issues and verifies one-time passwords per employee.
type OTPIssuer interface {
	Issue(employeeID string) (string, error)
	Verify(employeeID, code string) bool
	Revoke(employeeID string)
}

// CacheOTPIssuer keeps the last code per employee in memory until it expires
// or is used.
type CacheOTPIssuer struct {
	codes *cache.Cache
	ttl   time.Duration
}

func NewCacheOTPIssuer(ttl time.Duration) *CacheOTPIssuer {
	return &CacheOTPIssuer{
		codes: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Issue generates a fresh six-digit code, replacing any earlier one.
func (o *CacheOTPIssuer) Issue(employeeID string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+otpMin)
	o.codes.Set(employeeID, code, o.ttl)
	return code, nil
}

// Verify reports whether code matches the pending code. A match consumes it.
func (o *CacheOTPIssuer) Verify(employeeID, code string) bool {
	v, found := o.codes.Get(employeeID)
	if !found {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(v.(string)), []byte(code)) != 1 {
		return false
	}
	o.codes.Delete(employeeID)
	return true
}

func (o *CacheOTPIssuer) Revoke(employeeID string) {
	o.codes.Delete(employeeID)
}
