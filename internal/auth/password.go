package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes the client-side digest for storage.
func HashPassword(digest string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(digest), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the digest matches the stored hash.
func CheckPassword(stored, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(digest)) == nil
}
