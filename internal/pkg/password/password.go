package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	// MinLength is the minimum accepted password length in bytes
	MinLength = 6

	// MaxLength is the longest input bcrypt accepts, in bytes
	MaxLength = 72
)

// Hasher hashes and verifies passwords with bcrypt
type Hasher struct {
	cost int
}

// NewHasher creates a bcrypt hasher. Out-of-range costs fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash hashes a password using bcrypt
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash
func (h *Hasher) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// HashToken hashes a token using SHA256 (for reset tokens)
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GenerateToken returns a hex encoded random token of n bytes
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ValidatePassword checks the password is MinLength..MaxLength bytes long
func ValidatePassword(password string) bool {
	return len(password) >= MinLength && len(password) <= MaxLength
}
