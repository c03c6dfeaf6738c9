package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestAuth(t *testing.T) *LocalJWTAuth {
	t.Helper()
	a, err := NewLocalJWTAuth("test-secret-key", "tribehub", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewLocalJWTAuth failed: %v", err)
	}
	return a
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase bearer", header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "empty header", header: "", wantErr: true},
		{name: "missing scheme", header: "abc.def.ghi", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "empty token", header: "Bearer  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateAndVerifyTokens(t *testing.T) {
	a := newTestAuth(t)

	access, refresh, err := a.GenerateTokens("user-1", "a@b.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}
	if access == refresh {
		t.Error("access and refresh tokens should differ")
	}

	user, err := a.VerifyAccessToken(access)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if user.ID != "user-1" || user.Email != "a@b.com" || user.Role != "user" {
		t.Errorf("unexpected user: %+v", user)
	}

	claims, err := a.VerifyRefreshToken(refresh)
	if err != nil {
		t.Fatalf("VerifyRefreshToken failed: %v", err)
	}
	if claims.TokenID == "" {
		t.Error("refresh token should carry a token ID")
	}
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	a := newTestAuth(t)
	other, _ := NewLocalJWTAuth("different-secret", "tribehub", time.Minute, time.Hour)

	access, _, err := other.GenerateTokens("user-1", "a@b.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}

	if _, err := a.VerifyAccessToken(access); err == nil {
		t.Error("expected verification to fail with wrong secret")
	}
}

func TestVerifyAccessTokenRejectsWrongIssuer(t *testing.T) {
	a := newTestAuth(t)
	other, _ := NewLocalJWTAuth("test-secret-key", "someone-else", time.Minute, time.Hour)

	access, _, err := other.GenerateTokens("user-1", "a@b.com", "user")
	if err != nil {
		t.Fatalf("GenerateTokens failed: %v", err)
	}

	if _, err := a.VerifyAccessToken(access); err == nil {
		t.Error("expected verification to fail with wrong issuer")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	a := newTestAuth(t)

	hash, err := a.HashPassword("correct horse 1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := a.VerifyPassword(hash, "correct horse 1")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = a.VerifyPassword(hash, "wrong password 2")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("wrong password should not verify")
	}

	if _, err := a.VerifyPassword("not-a-hash", "anything"); err == nil {
		t.Error("malformed hash should error")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"short1A", true},
		{"alllettersonly", true},
		{"12345678", true},
		{"letters4nd numbers", false},
		{"Str0ngpassword", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}
