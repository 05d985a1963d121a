package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "Sup3r-secret-passphrase!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "not-a-hash")
	req.Error(err)

	_, err = ComparePassword("whatever", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")
	req.Error(err)
}

func TestTokens_Generate_And_Validate(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", "pairchat", time.Hour)
	userID := uuid.NewString()

	signed, err := tokens.Generate(userID, "alice")
	req.NoError(err)
	req.NotEmpty(signed)

	claims, err := tokens.Validate(signed)
	req.NoError(err)
	req.Equal(userID, claims.UserID)
	req.Equal("alice", claims.Username)
}

func TestTokens_Validate_Rejects_Expired(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", "pairchat", -time.Minute)

	signed, err := tokens.Generate(uuid.NewString(), "alice")
	req.NoError(err)

	_, err = tokens.Validate(signed)
	req.Error(err)
}

func TestTokens_Validate_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	signer := NewTokens("secret-a", "pairchat", time.Hour)
	verifier := NewTokens("secret-b", "pairchat", time.Hour)

	signed, err := signer.Generate(uuid.NewString(), "alice")
	req.NoError(err)

	_, err = verifier.Validate(signed)
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice42", "Alice", "ComplexPass123!"}, false},
		{"Username too short", RegisterRequest{"al", "Alice", "ComplexPass123!"}, true},
		{"Username not alphanumeric", RegisterRequest{"alice 42", "Alice", "ComplexPass123!"}, true},
		{"Missing display name", RegisterRequest{"alice42", "", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"alice42", "Alice", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"alice42", "Alice", "NoDigitPassword!"}, true},
		{"Missing special char", RegisterRequest{"alice42", "Alice", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"alice42", "Alice", "nouppercase1234!"}, true},
		{"Password too long", RegisterRequest{"alice42", "Alice", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
