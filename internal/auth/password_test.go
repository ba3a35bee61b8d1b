package auth

import (
	"errors"
	"testing"
)

func TestHashPassword(t *testing.T) {
	t.Run("hash verifies against original", func(t *testing.T) {
		hash, err := HashPassword("correct horse battery staple")
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		if hash == "correct horse battery staple" {
			t.Fatal("password stored in plaintext")
		}
		if err := ComparePassword(hash, "correct horse battery staple"); err != nil {
			t.Errorf("ComparePassword rejected the original password: %v", err)
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		hash, err := HashPassword("password123")
		if err != nil {
			t.Fatal(err)
		}
		if err := ComparePassword(hash, "password124"); err == nil {
			t.Error("ComparePassword accepted a wrong password")
		}
	})

	t.Run("too short password is refused", func(t *testing.T) {
		if _, err := HashPassword("1234567"); !errors.Is(err, ErrPasswordTooShort) {
			t.Errorf("err = %v, want ErrPasswordTooShort", err)
		}
	})

	t.Run("hashes are salted", func(t *testing.T) {
		h1, err := HashPassword("password123")
		if err != nil {
			t.Fatal(err)
		}
		h2, err := HashPassword("password123")
		if err != nil {
			t.Fatal(err)
		}
		if h1 == h2 {
			t.Error("two hashes of the same password are identical")
		}
	})
}
