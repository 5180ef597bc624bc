package main

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the original service's hashing cost factor.
const bcryptCost = 10

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcryptCost)
	return string(b), err
}

func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}
