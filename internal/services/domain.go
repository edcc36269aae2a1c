package services

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Service represents a registered downstream microservice credential.
type Service struct {
	ID            int64
	Name          string
	ServiceID     string
	ServiceSecret string
	Permissions   []string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	secretLength  = 32
	secretCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewSecret generates a 32 character alphanumeric secret. Regeneration
// overwrites the previous secret immediately; there is no grace period.
func NewSecret() (string, error) {
	out := make([]byte, secretLength)
	max := big.NewInt(int64(len(secretCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretCharset[n.Int64()]
	}
	return string(out), nil
}
