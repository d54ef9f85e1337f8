package sec

import "golang.org/x/crypto/bcrypt"

// ComparePassword returns an error if the provided password does not resolve
// to the given hash.
func ComparePassword[T ~string | ~[]byte](password T, hash []byte) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

// HashPassword generates the hash for a given password at the given bcrypt
// cost. Costs outside the valid bcrypt range fall back to the default cost.
// It errors if the password is longer than 72 bytes.
func HashPassword[T ~string | ~[]byte](password T, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}
