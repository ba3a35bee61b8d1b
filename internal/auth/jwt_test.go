package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return NewJWTManager("test-secret-key-for-unit-tests", accessExpiry, refreshExpiry)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(time.Hour, 7*24*time.Hour)

	token, err := m.GenerateAccessToken(42, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Nickname != "Alice" {
		t.Errorf("Nickname = %q", claims.Nickname)
	}
}

func TestAccessTokenValidation(t *testing.T) {
	m := newTestManager(time.Hour, 7*24*time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		if _, err := m.ValidateAccessToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("different-secret", time.Hour, time.Hour)
		token, err := other.GenerateAccessToken(1, "a@b.c", "A")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		short := newTestManager(-time.Minute, time.Hour)
		token, err := short.GenerateAccessToken(1, "a@b.c", "A")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := short.ValidateAccessToken(token); !errors.Is(err, ErrExpiredToken) {
			t.Errorf("err = %v, want ErrExpiredToken", err)
		}
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		refresh, err := m.GenerateRefreshToken(42)
		if err != nil {
			t.Fatal(err)
		}
		// 리프레시 토큰에는 user_id 클레임이 없다
		claims, err := m.ValidateAccessToken(refresh)
		if err == nil && claims.UserID != 0 {
			t.Errorf("refresh token validated as access token with UserID %d", claims.UserID)
		}
	})
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager(time.Hour, 7*24*time.Hour)

	token, err := m.GenerateRefreshToken(42)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	userID, err := m.ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestRefreshTokenExpiry(t *testing.T) {
	m := newTestManager(time.Hour, -time.Minute)

	token, err := m.GenerateRefreshToken(42)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateRefreshToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}
