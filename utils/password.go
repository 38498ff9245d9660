package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor for stored password hashes.
const PasswordCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of the password. Every call draws a fresh salt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
