package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrMalformedToken = errors.New("malformed token")

// IssueToken creates a bearer token "<member-id>.<secret>" and the bcrypt
// hash of its secret. Only the hash is stored.
func IssueToken(memberID int64) (token, hash string, err error) {
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash token: %w", err)
	}
	return fmt.Sprintf("%d.%s", memberID, secret), string(h), nil
}

// ParseToken splits a bearer token into its member id and secret.
func ParseToken(token string) (int64, string, error) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || secret == "" {
		return 0, "", ErrMalformedToken
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrMalformedToken
	}
	return id, secret, nil
}

// CheckSecret reports whether secret matches a stored hash.
func CheckSecret(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
