package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Cost is the bcrypt work factor; tests lower it to bcrypt.MinCost.
var Cost = bcrypt.DefaultCost

func HashPassword(p string) (string, error) {
	if len(p) > 72 {
		return "", ErrPasswordTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(p), Cost)
	return string(bytes), err
}

func CheckPassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
