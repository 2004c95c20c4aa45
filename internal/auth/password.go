package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost for admin password hashes. Logins are rare, so the work
// factor can sit above the library default.
const hashCost = 12

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func ComparePassword(hash, password string) error {
	if hash == "" || password == "" {
		return errors.New("missing hash or password")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
