package personstore

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptCost      = 16384
	scryptBlockSize = 8
	scryptParallel  = 1
	scryptKeyLen    = 64
)

// hashPassword returns "<hex salt>:<hex key>"
func hashPassword(password string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	salt := hex.EncodeToString(buf)
	dk, err := scrypt.Key([]byte(password), []byte(salt), scryptCost, scryptBlockSize, scryptParallel, scryptKeyLen)
	if err != nil {
		return "", err
	}
	return salt + ":" + hex.EncodeToString(dk), nil
}

func checkPassword(stored, password string) error {
	salt, hash, ok := strings.Cut(stored, ":")
	if !ok {
		return ErrInvalidPassword
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return ErrInvalidPassword
	}
	dk, err := scrypt.Key([]byte(password), []byte(salt), scryptCost, scryptBlockSize, scryptParallel, scryptKeyLen)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(dk, want) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
