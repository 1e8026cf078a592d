package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by HashPassword for inputs bcrypt would reject.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")


// HashPassword returns a salted bcrypt digest of password.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored digest.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DummyHash returns a digest at cost that no user password matches. Comparing
// against it when a username is unknown makes that failure cost as much as a
// wrong password, provided cost is the one real hashes use.
func DummyHash(cost int) (string, error) {
	return HashPassword("not-a-real-password", cost)
}

// BurnPasswordCheck performs a comparison against hash and discards the result.
func BurnPasswordCheck(password, hash string) {
	_ = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
