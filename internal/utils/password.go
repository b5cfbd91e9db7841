package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt cost used for OPERATOR_PASSWORD_HASH values
// produced by cmd/hashpw.
const PasswordCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of plain at the given cost. A cost
// outside bcrypt's range falls back to PasswordCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = PasswordCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash. An empty or malformed
// hash never matches.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
