// Package token issues and verifies the opaque value that gates the
// purchase URL. A token is an HMAC-SHA256 digest of the sale id and a
// coarse time bucket, keyed by a server secret, so it cannot be computed
// client-side before the exposer hands it out, yet verification needs no
// server-side storage.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DefaultEpoch is the bucket length a token stays stable for.
const DefaultEpoch = 5 * time.Minute

// tokenBytes is the truncated digest length; 16 bytes encode to a
// 32-character hex string.
const tokenBytes = 16

var ErrEmptySecret = errors.New("token secret must not be empty")

type Codec struct {
	secret []byte
	epoch  time.Duration
}

// NewCodec builds a codec from an injected secret. The secret is explicit
// configuration, never ambient state, so it can be rotated and tested
// deterministically.
func NewCodec(secret string, epoch time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if epoch <= 0 {
		epoch = DefaultEpoch
	}
	return &Codec{secret: []byte(secret), epoch: epoch}, nil
}

// Issue returns the token for saleID in the epoch containing now.
// Deterministic: two calls within the same epoch return the same string.
func (c *Codec) Issue(saleID int64, now time.Time) string {
	return c.digest(saleID, c.bucket(now))
}

// Verify reports whether tok is a valid token for saleID at now. Tokens
// from the previous epoch are still accepted so a client that fetched its
// token just before a bucket rollover is not rejected mid-flight. Both
// comparisons are constant-time.
func (c *Codec) Verify(saleID int64, tok string, now time.Time) bool {
	if tok == "" {
		return false
	}
	b := c.bucket(now)
	current := hmac.Equal([]byte(tok), []byte(c.digest(saleID, b)))
	previous := hmac.Equal([]byte(tok), []byte(c.digest(saleID, b-1)))
	return current || previous
}

func (c *Codec) bucket(now time.Time) int64 {
	return now.Unix() / int64(c.epoch/time.Second)
}

func (c *Codec) digest(saleID int64, bucket int64) string {
	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%d|%d", saleID, bucket)
	return hex.EncodeToString(mac.Sum(nil)[:tokenBytes])
}
